// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package host

import (
	"context"
	"net/url"
	"path"
	"strings"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// HandlerFunc is a command or event handler exported by an extension module.
type HandlerFunc func(ctx context.Context, data map[string]any) (any, error)

// Descriptor identifies the module an extension should be loaded from.
type Descriptor struct {
	ID       string
	EntryURL string
}

// Handle is a loaded extension module. Init is the module's default
// initializer, run exactly once after load. Handler resolves an exported
// function by name for declarative command registration.
type Handle interface {
	Init(ctx context.Context) error
	Handler(name string) (HandlerFunc, bool)
	Close(ctx context.Context) error
}

// Activator is implemented by modules exposing an activation hook. Absence
// of the hook is not an error; the lifecycle proceeds as a no-op.
type Activator interface {
	Activate(ctx context.Context, api *API) error
}

// Deactivator is implemented by modules exposing a deactivation hook.
type Deactivator interface {
	Deactivate(ctx context.Context) error
}

// Loader turns a descriptor into a loaded module. Implementations wrap a
// concrete isolation primitive (in-process registry, Wasm runtime, JS
// interpreter) so the primitive is swappable without touching the
// lifecycle manager.
type Loader interface {
	Load(ctx context.Context, desc Descriptor) (Handle, error)
}

// LoaderMux routes a descriptor to a Loader by the entry URL's scheme
// (e.g. "builtin:") or, failing that, by its path extension (".wasm",
// ".js").
type LoaderMux struct {
	byScheme map[string]Loader
	byExt    map[string]Loader
}

// NewLoaderMux creates an empty LoaderMux.
func NewLoaderMux() *LoaderMux {
	return &LoaderMux{
		byScheme: make(map[string]Loader),
		byExt:    make(map[string]Loader),
	}
}

// RegisterScheme routes entry URLs with the given scheme to l.
func (m *LoaderMux) RegisterScheme(scheme string, l Loader) {
	m.byScheme[strings.ToLower(scheme)] = l
}

// RegisterExtension routes entry URLs with the given path extension
// (including the dot) to l.
func (m *LoaderMux) RegisterExtension(ext string, l Loader) {
	m.byExt[strings.ToLower(ext)] = l
}

// Load picks the loader for desc and delegates to it.
func (m *LoaderMux) Load(ctx context.Context, desc Descriptor) (Handle, error) {
	if u, err := url.Parse(desc.EntryURL); err == nil && u.Scheme != "" {
		if l, ok := m.byScheme[strings.ToLower(u.Scheme)]; ok {
			return l.Load(ctx, desc)
		}
	}

	if ext := strings.ToLower(path.Ext(desc.EntryURL)); ext != "" {
		if l, ok := m.byExt[ext]; ok {
			return l.Load(ctx, desc)
		}
	}

	return nil, inkerr.Errorf(inkerr.CodeHostLoaderUnsupported,
		"no loader for entry url %q", desc.EntryURL)
}
