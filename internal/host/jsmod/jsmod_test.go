// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package jsmod_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell/internal/host"
	"github.com/inkwell-notes/inkwell/internal/host/jsmod"
	"github.com/inkwell-notes/inkwell/internal/transport"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

func writeScript(t *testing.T, source string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "extension.js")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o600))
	return path
}

// newRig wires a host routing .js entries to the script loader.
func newRig(t *testing.T, surface *host.Surface, opts ...jsmod.Option) *transport.Transport {
	t.Helper()

	mux := host.NewLoaderMux()
	mux.RegisterExtension(".js", jsmod.NewLoader(opts...))

	tr := transport.New(transport.NewPipe(host.New(mux, surface)),
		transport.WithCallTimeout(5*time.Second))
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestLoad_SyntaxError(t *testing.T) {
	l := jsmod.NewLoader()

	path := writeScript(t, `function count( {`)
	_, err := l.Load(context.Background(), host.Descriptor{ID: "broken", EntryURL: path})
	require.Error(t, err)
	assert.True(t, inkerr.HasCode(err, inkerr.CodeHostLoadFailure))
}

func TestLoad_RunawayScriptInterrupted(t *testing.T) {
	l := jsmod.NewLoader(jsmod.WithExecTimeout(100 * time.Millisecond))

	path := writeScript(t, `while (true) {}`)
	_, err := l.Load(context.Background(), host.Descriptor{ID: "spin", EntryURL: path})
	require.Error(t, err)
	assert.True(t, inkerr.HasCode(err, inkerr.CodeHostLoadFailure))
}

func TestHandler_GlobalFunction(t *testing.T) {
	l := jsmod.NewLoader()

	path := writeScript(t, `
		function count(data) {
			var words = data.content.split(/\s+/).filter(function(w) { return w.length > 0; });
			return { words: words.length };
		}
	`)
	handle, err := l.Load(context.Background(), host.Descriptor{ID: "word-counter", EntryURL: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close(context.Background()) })

	_, ok := handle.Handler("missing")
	assert.False(t, ok)

	fn, ok := handle.Handler("count")
	require.True(t, ok)

	result, err := fn(context.Background(), map[string]any{"content": "a b c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"words": int64(3)}, result)
}

func TestHandler_ScriptThrow(t *testing.T) {
	l := jsmod.NewLoader()

	path := writeScript(t, `function boom() { throw new Error("script exploded"); }`)
	handle, err := l.Load(context.Background(), host.Descriptor{ID: "thrower", EntryURL: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close(context.Background()) })

	fn, ok := handle.Handler("boom")
	require.True(t, ok)

	_, err = fn(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, inkerr.HasCode(err, inkerr.CodeHostHandlerFailure))
	assert.Contains(t, err.Error(), "script exploded")
}

func TestActivate_BridgeRegistersCommand(t *testing.T) {
	tr := newRig(t, host.NewSurface())

	path := writeScript(t, `
		function activate() {
			inkwell.registerCommand("greet", function(data) {
				return { msg: "hi " + data.name };
			});
		}
	`)

	_, err := tr.Call(context.Background(), transport.LoadPlugin{PluginID: "greeter", EntryURL: path})
	require.NoError(t, err)
	_, err = tr.Call(context.Background(), transport.ActivatePlugin{PluginID: "greeter"})
	require.NoError(t, err)

	resp, err := tr.Call(context.Background(), transport.ExecuteCommand{
		CommandID: "greet",
		Data:      map[string]any{"name": "ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"msg": "hi ada"}, resp.Result)
}

func TestCallHostAPI_GrantedAndAbsent(t *testing.T) {
	surface := host.NewSurface()
	surface.Register("text.analyze.getContent", "text.analyze",
		func(context.Context, map[string]any) (any, error) {
			return "note body", nil
		})
	surface.Register("text.transform.replaceContent", "text.transform",
		func(context.Context, map[string]any) (any, error) { return nil, nil })
	tr := newRig(t, surface)

	path := writeScript(t, `
		function fetchContent() {
			return { content: inkwell.callHostAPI("text.analyze.getContent", {}) };
		}
		function overreach() {
			return inkwell.callHostAPI("text.transform.replaceContent", {});
		}
		function activate() {
			inkwell.registerCommand("fetch", fetchContent);
			inkwell.registerCommand("overreach", overreach);
		}
	`)

	_, err := tr.Call(context.Background(), transport.LoadPlugin{
		PluginID: "analyzer", EntryURL: path, Permissions: []string{"text.analyze"},
	})
	require.NoError(t, err)
	_, err = tr.Call(context.Background(), transport.ActivatePlugin{PluginID: "analyzer"})
	require.NoError(t, err)

	resp, err := tr.Call(context.Background(), transport.ExecuteCommand{CommandID: "fetch"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"content": "note body"}, resp.Result)

	_, err = tr.Call(context.Background(), transport.ExecuteCommand{CommandID: "overreach"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDeclaredCommand_GlobalHandler(t *testing.T) {
	tr := newRig(t, host.NewSurface())

	path := writeScript(t, `
		function count(data) {
			return { words: data.content.split(" ").length };
		}
	`)

	_, err := tr.Call(context.Background(), transport.LoadPlugin{PluginID: "counter", EntryURL: path})
	require.NoError(t, err)
	_, err = tr.Call(context.Background(), transport.ActivatePlugin{
		PluginID: "counter",
		Commands: []transport.CommandSpec{{ID: "count", HandlerName: "count"}},
	})
	require.NoError(t, err)

	resp, err := tr.Call(context.Background(), transport.ExecuteCommand{
		CommandID: "count",
		Data:      map[string]any{"content": "one two three"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"words": int64(3)}, resp.Result)
}
