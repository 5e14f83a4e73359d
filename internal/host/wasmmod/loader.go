// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package wasmmod loads extension modules compiled to WebAssembly on a
// wazero runtime. Guests follow the Inkwell ABI: they export `alloc` for
// guest-memory handoff, optionally `init`, `activate`, and `deactivate`,
// and one exported function per handler taking (ptr, len) of a JSON
// payload and returning a packed ptr<<32|len of a JSON reply envelope.
// The host module "inkwell" offers `log`, `register_command`,
// `register_event`, and `call_host` to guests.
package wasmmod

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	wapi "github.com/tetratelabs/wazero/api"

	"github.com/inkwell-notes/inkwell/internal/host"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

const hostModuleName = "inkwell"

// Loader compiles and instantiates Wasm extension modules. All modules
// share one runtime; each instance is named after its extension id and
// has its own linear memory.
type Loader struct {
	runtime     wazero.Runtime
	fetch       FetchFunc
	execTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	modules map[string]*Module // by instance name, for host-function dispatch
}

// FetchFunc retrieves the module bytes for an entry URL.
type FetchFunc func(ctx context.Context, entryURL string) ([]byte, error)

// Option configures a Loader.
type Option func(*Loader)

// WithExecTimeout bounds each guest call. Zero or negative means no bound
// beyond the caller's context.
func WithExecTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.execTimeout = d
	}
}

// WithFetch overrides how module bytes are retrieved.
func WithFetch(fetch FetchFunc) Option {
	return func(l *Loader) {
		l.fetch = fetch
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates the wazero runtime and instantiates the host module.
// The runtime is configured with WithCloseOnContextDone(true) so context
// cancellation interrupts in-flight guest execution.
func NewLoader(ctx context.Context, opts ...Option) (*Loader, error) {
	l := &Loader{
		fetch:   fetchEntry,
		logger:  slog.Default(),
		modules: make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(l)
	}

	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	l.runtime = wazero.NewRuntimeWithConfig(ctx, cfg)

	if err := l.instantiateHostModule(ctx); err != nil {
		_ = l.runtime.Close(ctx)
		return nil, err
	}

	return l, nil
}

// Load compiles and instantiates the module at the descriptor's entry URL.
func (l *Loader) Load(ctx context.Context, desc host.Descriptor) (host.Handle, error) {
	wasmBytes, err := l.fetch(ctx, desc.EntryURL)
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeHostLoadFailure,
			"fetching wasm module for %s", desc.ID)
	}

	compiled, err := l.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeHostLoadFailure,
			"compiling wasm module %s", desc.ID)
	}

	instance, err := l.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(desc.ID))
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeHostLoadFailure,
			"instantiating wasm module %s", desc.ID)
	}

	if instance.ExportedFunction("alloc") == nil {
		_ = instance.Close(ctx)
		return nil, inkerr.Errorf(inkerr.CodeHostLoadFailure,
			"wasm module %s does not export alloc", desc.ID)
	}

	m := &Module{
		id:          desc.ID,
		loader:      l,
		instance:    instance,
		execTimeout: l.execTimeout,
		logger:      l.logger,
	}

	l.mu.Lock()
	l.modules[desc.ID] = m
	l.mu.Unlock()

	return m, nil
}

// Close shuts the runtime down, releasing every instance.
func (l *Loader) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
}

func (l *Loader) moduleFor(caller wapi.Module) *Module {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.modules[caller.Name()]
}

func (l *Loader) forget(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.modules, id)
}
