// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell/internal/contribution"
	"github.com/inkwell-notes/inkwell/internal/host"
	"github.com/inkwell-notes/inkwell/internal/host/native"
	"github.com/inkwell-notes/inkwell/internal/lifecycle"
	"github.com/inkwell-notes/inkwell/internal/server"
	"github.com/inkwell-notes/inkwell/internal/store"
	"github.com/inkwell-notes/inkwell/internal/transport"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

type fixture struct {
	server  *server.Server
	manager *lifecycle.Manager
}

// newFixture assembles the full host-side stack over an in-process pipe,
// with the word-counter builtin available in the registry.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := native.NewRegistry()
	registry.Register("word-counter", func() host.Handle {
		return &native.Module{
			ActivateFunc: func(_ context.Context, api *host.API) error {
				api.RegisterEvent("content.changed", func(_ context.Context, data map[string]any) (any, error) {
					content, _ := data["content"].(string)
					return map[string]any{"words": len(strings.Fields(content))}, nil
				})
				return nil
			},
			Handlers: map[string]host.HandlerFunc{
				"count": func(_ context.Context, data map[string]any) (any, error) {
					content, _ := data["content"].(string)
					return map[string]any{"words": len(strings.Fields(content))}, nil
				},
			},
		}
	})

	mux := host.NewLoaderMux()
	mux.RegisterScheme(native.Scheme, registry)

	tr := transport.New(transport.NewPipe(host.New(mux, host.NewSurface())),
		transport.WithCallTimeout(2*time.Second))
	t.Cleanup(func() { _ = tr.Close() })

	kv := store.NewMemoryKV()
	contributions := contribution.NewRegistry()
	manager := lifecycle.NewManager(tr, store.NewInstalledStore(kv), contributions)
	manager.AddManifest(&manifest.Manifest{
		ID:          "word-counter-plugin",
		Name:        "Word Counter",
		Version:     "1.0.0",
		Main:        "builtin:word-counter",
		Permissions: []string{"text.analyze"},
		Contributes: &manifest.Contributions{
			Panels: []manifest.Panel{
				{ID: "p1", Title: "Stats", ViewType: "preview.stats", Priority: 5, Command: "count"},
			},
			Commands: []manifest.Command{
				{ID: "count", Title: "Count Words", HandlerName: "count"},
			},
		},
	})

	resolver := contribution.NewResolver()
	resolver.SetPolicy("preview.main", contribution.Policy{Mode: contribution.ModeTabs})

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, server.Services{
		Lifecycle:     manager,
		Calls:         tr,
		Notes:         store.NewNoteStore(kv),
		Contributions: contributions,
		Resolver:      resolver,
	})
	require.NoError(t, err)

	return &fixture{server: srv, manager: manager}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestNotes_CRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/notes", map[string]string{"title": "Draft", "content": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[store.Note](t, rec)
	require.NotEmpty(t, created.ID)

	rec = f.do(t, http.MethodGet, "/api/notes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Draft", decode[store.Note](t, rec).Title)

	rec = f.do(t, http.MethodGet, "/api/notes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/notes/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/notes/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotes_CreateWithoutTitle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/notes", map[string]string{"content": "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotes_UpdateContentBroadcasts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Install(context.Background(), "word-counter-plugin"))

	rec := f.do(t, http.MethodPost, "/api/notes", map[string]string{"title": "Draft"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[store.Note](t, rec)

	rec = f.do(t, http.MethodPut, "/api/notes/"+created.ID+"/content",
		map[string]string{"content": "one two three four"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Note       store.Note `json:"note"`
		Extensions map[string]struct {
			OK     bool           `json:"ok"`
			Result map[string]any `json:"result"`
		} `json:"extensions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "one two three four", resp.Note.Content)
	require.Contains(t, resp.Extensions, "word-counter-plugin")
	assert.True(t, resp.Extensions["word-counter-plugin"].OK)
	assert.EqualValues(t, 4, resp.Extensions["word-counter-plugin"].Result["words"])
}

func TestExtensions_InstallAndUninstall(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/extensions/word-counter-plugin/install", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/extensions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Extensions []struct {
			Manifest  manifest.Manifest `json:"manifest"`
			Installed bool              `json:"installed"`
			Loaded    bool              `json:"loaded"`
		} `json:"extensions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Extensions, 1)
	assert.True(t, list.Extensions[0].Installed)
	assert.True(t, list.Extensions[0].Loaded)

	rec = f.do(t, http.MethodDelete, "/api/extensions/word-counter-plugin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.manager.IsLoaded("word-counter-plugin"))
}

func TestExtensions_InstallUnknown(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/extensions/ghost/install", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSlots_ResolveAfterInstall(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Install(context.Background(), "word-counter-plugin"))

	rec := f.do(t, http.MethodGet, "/api/slots/preview.stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[contribution.Resolution](t, rec)
	require.Len(t, res.Visible, 1)
	assert.Equal(t, "word-counter-plugin", res.Visible[0].OwnerID)

	rec = f.do(t, http.MethodGet, "/api/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[map[string][]string](t, rec)
	assert.Contains(t, slots["slots"], "preview.stats")
}

func TestCommands_Execute(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Install(context.Background(), "word-counter-plugin"))

	rec := f.do(t, http.MethodPost, "/api/commands/count",
		map[string]any{"data": map[string]any{"content": "a b c"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp.Result["words"])
}

func TestCommands_Unregistered(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/commands/ghost", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNotes_MalformedBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
