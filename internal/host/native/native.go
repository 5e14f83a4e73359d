// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package native provides an in-process loader for extensions implemented
// in Go. Builtin extensions register a factory under a name; descriptors
// with a "builtin:" entry URL resolve against that registry. Native
// modules run inside the extension host like any other module and see
// only their capability-scoped API.
package native

import (
	"context"
	"strings"
	"sync"

	"github.com/inkwell-notes/inkwell/internal/host"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// Scheme is the entry-URL scheme routed to this loader.
const Scheme = "builtin"

// Factory creates a fresh module instance per load.
type Factory func() host.Handle

// Registry maps builtin module names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a builtin module factory under name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Load resolves "builtin:<name>" against the registry.
func (r *Registry) Load(_ context.Context, desc host.Descriptor) (host.Handle, error) {
	name := strings.TrimPrefix(desc.EntryURL, Scheme+":")

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, inkerr.Errorf(inkerr.CodeHostLoadFailure,
			"no builtin module %q", name)
	}

	return factory(), nil
}

// Module is a convenience Handle for builtin extensions. Hook fields left
// nil behave as absent hooks (successful no-ops).
type Module struct {
	InitFunc       func(ctx context.Context) error
	ActivateFunc   func(ctx context.Context, api *host.API) error
	DeactivateFunc func(ctx context.Context) error
	Handlers       map[string]host.HandlerFunc
}

func (m *Module) Init(ctx context.Context) error {
	if m.InitFunc == nil {
		return nil
	}
	return m.InitFunc(ctx)
}

func (m *Module) Activate(ctx context.Context, api *host.API) error {
	if m.ActivateFunc == nil {
		return nil
	}
	return m.ActivateFunc(ctx, api)
}

func (m *Module) Deactivate(ctx context.Context) error {
	if m.DeactivateFunc == nil {
		return nil
	}
	return m.DeactivateFunc(ctx)
}

func (m *Module) Handler(name string) (host.HandlerFunc, bool) {
	fn, ok := m.Handlers[name]
	return fn, ok
}

func (m *Module) Close(context.Context) error { return nil }
