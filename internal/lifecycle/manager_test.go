// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package lifecycle_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell/internal/contribution"
	"github.com/inkwell-notes/inkwell/internal/host"
	"github.com/inkwell-notes/inkwell/internal/host/native"
	"github.com/inkwell-notes/inkwell/internal/lifecycle"
	"github.com/inkwell-notes/inkwell/internal/store"
	"github.com/inkwell-notes/inkwell/internal/transport"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

// countingCaller records every message sent across the boundary.
type countingCaller struct {
	inner lifecycle.Caller

	mu   sync.Mutex
	sent []transport.Message
}

func (c *countingCaller) Call(ctx context.Context, msg transport.Message) (transport.Response, error) {
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return c.inner.Call(ctx, msg)
}

func (c *countingCaller) countKind(kind transport.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, msg := range c.sent {
		if msg.Kind() == kind {
			n++
		}
	}
	return n
}

func (c *countingCaller) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type rig struct {
	calls         *countingCaller
	transport     *transport.Transport
	manager       *lifecycle.Manager
	installed     *store.InstalledStore
	contributions *contribution.Registry
}

func newRig(t *testing.T, registry *native.Registry) *rig {
	t.Helper()

	mux := host.NewLoaderMux()
	mux.RegisterScheme(native.Scheme, registry)

	tr := transport.New(transport.NewPipe(host.New(mux, host.NewSurface())),
		transport.WithCallTimeout(2*time.Second))
	t.Cleanup(func() { _ = tr.Close() })

	calls := &countingCaller{inner: tr}
	installed := store.NewInstalledStore(store.NewMemoryKV())
	contributions := contribution.NewRegistry()

	return &rig{
		calls:         calls,
		transport:     tr,
		manager:       lifecycle.NewManager(calls, installed, contributions),
		installed:     installed,
		contributions: contributions,
	}
}

func wordCounterRegistry() *native.Registry {
	registry := native.NewRegistry()
	registry.Register("word-counter", func() host.Handle {
		return &native.Module{
			Handlers: map[string]host.HandlerFunc{
				"count": func(_ context.Context, data map[string]any) (any, error) {
					content, _ := data["content"].(string)
					return map[string]any{"words": len(strings.Fields(content))}, nil
				},
			},
		}
	})
	return registry
}

func wordCounterManifest() *manifest.Manifest {
	return &manifest.Manifest{
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
	}
}

func TestInstall_WordCounterScenario(t *testing.T) {
	r := newRig(t, wordCounterRegistry())
	r.manager.AddManifest(wordCounterManifest())

	ctx := context.Background()
	require.NoError(t, r.manager.Install(ctx, "word-counter-plugin"))

	ids, err := r.installed.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"word-counter-plugin"}, ids)

	entries := r.contributions.Get("preview.stats")
	require.Len(t, entries, 1)
	assert.Equal(t, "word-counter-plugin", entries[0].OwnerID)
	assert.Equal(t, "Word Counter", entries[0].OwnerName)

	resp, err := r.transport.Call(ctx, transport.ExecuteCommand{
		CommandID: "count",
		Data:      map[string]any{"content": "a b c"},
	})
	require.NoError(t, err)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, result["words"])
}

func TestInstall_NoManifestFetched(t *testing.T) {
	r := newRig(t, native.NewRegistry())

	err := r.manager.Install(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, inkerr.HasCode(err, inkerr.CodeLifecycleManifestNotFound))

	ids, listErr := r.installed.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, ids)
}

func TestLoad_TwiceSendsOneMessage(t *testing.T) {
	r := newRig(t, wordCounterRegistry())
	r.manager.AddManifest(wordCounterManifest())

	ctx := context.Background()
	require.NoError(t, r.manager.Load(ctx, "word-counter-plugin"))
	require.NoError(t, r.manager.Load(ctx, "word-counter-plugin"))

	assert.Equal(t, 1, r.calls.countKind(transport.KindLoadPlugin))
	assert.True(t, r.manager.IsLoaded("word-counter-plugin"))
}

func TestActivate_HookFailureIsSwallowed(t *testing.T) {
	registry := native.NewRegistry()
	registry.Register("word-counter", func() host.Handle {
		// No handlers: the declared command cannot be bound and
		// activation fails on the isolated side.
		return &native.Module{}
	})
	r := newRig(t, registry)
	r.manager.AddManifest(wordCounterManifest())

	ctx := context.Background()
	require.NoError(t, r.manager.Load(ctx, "word-counter-plugin"))
	require.NoError(t, r.manager.Activate(ctx, "word-counter-plugin"))

	// Contributions are registered regardless of the hook outcome.
	assert.Len(t, r.contributions.Get("preview.stats"), 1)
}

func TestDeactivate_PrunesContributions(t *testing.T) {
	r := newRig(t, wordCounterRegistry())
	r.manager.AddManifest(wordCounterManifest())

	ctx := context.Background()
	require.NoError(t, r.manager.Install(ctx, "word-counter-plugin"))
	require.Len(t, r.contributions.Get("preview.stats"), 1)

	require.NoError(t, r.manager.Deactivate(ctx, "word-counter-plugin"))
	assert.Empty(t, r.contributions.Get("preview.stats"))

	_, err := r.transport.Call(ctx, transport.ExecuteCommand{CommandID: "count"})
	require.Error(t, err)
}

func TestUninstall_NeverInstalledIsNoOp(t *testing.T) {
	r := newRig(t, native.NewRegistry())

	require.NoError(t, r.manager.Uninstall(context.Background(), "never-installed"))

	assert.Zero(t, r.calls.total(), "no transport messages for a never-installed extension")
	ids, err := r.installed.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUninstall_LoadedExtension(t *testing.T) {
	r := newRig(t, wordCounterRegistry())
	r.manager.AddManifest(wordCounterManifest())

	ctx := context.Background()
	require.NoError(t, r.manager.Install(ctx, "word-counter-plugin"))
	require.NoError(t, r.manager.Uninstall(ctx, "word-counter-plugin"))

	assert.False(t, r.manager.IsLoaded("word-counter-plugin"))
	assert.Empty(t, r.contributions.Get("preview.stats"))
	ids, err := r.installed.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.Equal(t, 1, r.calls.countKind(transport.KindDeactivatePlugin))
	assert.Equal(t, 1, r.calls.countKind(transport.KindUnloadPlugin))
}

func TestLoadInstalled_BestEffort(t *testing.T) {
	r := newRig(t, wordCounterRegistry())
	r.manager.AddManifest(wordCounterManifest())

	ctx := context.Background()
	require.NoError(t, r.installed.Add(ctx, "stale-id"))
	require.NoError(t, r.installed.Add(ctx, "word-counter-plugin"))

	require.NoError(t, r.manager.LoadInstalled(ctx))

	assert.False(t, r.manager.IsLoaded("stale-id"))
	assert.True(t, r.manager.IsLoaded("word-counter-plugin"))
	assert.Len(t, r.contributions.Get("preview.stats"), 1)
}
