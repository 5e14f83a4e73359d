// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package jsmod loads extension modules written in JavaScript on an
// embedded goja interpreter. Each extension gets its own VM. The entry
// script runs once at load; it may define optional global `init`,
// `activate`, and `deactivate` hooks plus one global function per
// handler. During activation the VM sees a global `inkwell` object with
// registerCommand, registerEvent, unregisterCommand, unregisterEvent,
// callHostAPI, and log.
package jsmod

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/inkwell-notes/inkwell/internal/host"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// DefaultExecTimeout bounds a single script evaluation or handler call.
const DefaultExecTimeout = 30 * time.Second

// FetchFunc retrieves the script source for an entry URL.
type FetchFunc func(ctx context.Context, entryURL string) ([]byte, error)

// Loader creates one goja VM per loaded extension.
type Loader struct {
	fetch       FetchFunc
	execTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithExecTimeout bounds each script evaluation and handler call.
func WithExecTimeout(d time.Duration) Option {
	return func(l *Loader) {
		l.execTimeout = d
	}
}

// WithFetch overrides how script source is retrieved.
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

// NewLoader creates a JavaScript module loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		fetch:       fetchSource,
		execTimeout: DefaultExecTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the entry script and evaluates it on a fresh VM. The
// evaluation runs under the exec timeout; a script spinning at load time
// is interrupted and the load fails.
func (l *Loader) Load(ctx context.Context, desc host.Descriptor) (host.Handle, error) {
	source, err := l.fetch(ctx, desc.EntryURL)
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeHostLoadFailure,
			"fetching script for %s", desc.ID)
	}

	m := &Module{
		id:          desc.ID,
		vm:          goja.New(),
		execTimeout: l.execTimeout,
		logger:      l.logger,
	}
	m.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	if _, err := m.runLocked(ctx, func() (goja.Value, error) {
		return m.vm.RunScript(desc.EntryURL, string(source))
	}); err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeHostLoadFailure,
			"evaluating script for %s", desc.ID)
	}

	return m, nil
}

// Module is one JavaScript extension instance. The VM is single-threaded;
// every entry into it is serialized by mu.
type Module struct {
	id          string
	vm          *goja.Runtime
	execTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex      // serializes VM entry
	callCtx context.Context // context of the in-flight VM entry, under mu

	// api is read re-entrantly by bridge functions while a VM entry holds mu.
	apiMu sync.Mutex
	api   *host.API
}

var _ host.Handle = (*Module)(nil)
var _ host.Activator = (*Module)(nil)
var _ host.Deactivator = (*Module)(nil)

// Init runs the script's optional global init function.
func (m *Module) Init(ctx context.Context) error {
	return m.callHook(ctx, "init")
}

// Activate installs the bridge object as the global `inkwell` and runs the
// script's optional global activate function.
func (m *Module) Activate(ctx context.Context, api *host.API) error {
	m.apiMu.Lock()
	m.api = api
	m.apiMu.Unlock()

	m.mu.Lock()
	err := m.vm.Set("inkwell", m.bridgeObject())
	m.mu.Unlock()
	if err != nil {
		return inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
			"installing bridge in %s", m.id)
	}

	return m.callHook(ctx, "activate")
}

// Deactivate runs the script's optional global deactivate function and
// withdraws the API. Bridge calls made afterwards throw.
func (m *Module) Deactivate(ctx context.Context) error {
	err := m.callHook(ctx, "deactivate")

	m.apiMu.Lock()
	m.api = nil
	m.apiMu.Unlock()

	return err
}

// Handler resolves a global function by name.
func (m *Module) Handler(name string) (host.HandlerFunc, bool) {
	m.mu.Lock()
	_, ok := goja.AssertFunction(m.vm.Get(name))
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return m.scriptHandler(name), true
}

// Close interrupts any in-flight evaluation.
func (m *Module) Close(context.Context) error {
	m.vm.Interrupt("module closed")
	return nil
}

// callHook invokes a no-arg global function. An absent global, or one that
// is not a function, is a successful no-op.
func (m *Module) callHook(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn, ok := goja.AssertFunction(m.vm.Get(name))
	if !ok {
		return nil
	}

	if _, err := m.runHeldLocked(ctx, func() (goja.Value, error) {
		return fn(goja.Undefined())
	}); err != nil {
		return inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
			"script %s hook in %s", name, m.id)
	}
	return nil
}

// scriptHandler adapts the named global function to a host.HandlerFunc.
// The handler's return value is exported to plain Go values.
func (m *Module) scriptHandler(name string) host.HandlerFunc {
	return func(ctx context.Context, data map[string]any) (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		fn, ok := goja.AssertFunction(m.vm.Get(name))
		if !ok {
			return nil, inkerr.Errorf(inkerr.CodeHostHandlerFailure,
				"script %s exports no function %q", m.id, name)
		}

		v, err := m.runHeldLocked(ctx, func() (goja.Value, error) {
			return fn(goja.Undefined(), m.vm.ToValue(data))
		})
		if err != nil {
			return nil, inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
				"script handler %s.%s", m.id, name)
		}

		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			return nil, nil
		}
		return v.Export(), nil
	}
}

// runLocked takes mu and evaluates fn under the exec timeout.
func (m *Module) runLocked(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runHeldLocked(ctx, fn)
}

// runHeldLocked evaluates fn with the VM interrupt armed on timeout or
// context cancellation. Caller holds mu.
func (m *Module) runHeldLocked(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	if m.execTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.execTimeout)
		defer cancel()
	}

	m.callCtx = ctx
	defer func() { m.callCtx = nil }()

	// A cancellation racing the end of the previous evaluation can leave a
	// stale interrupt behind; clear before entering the VM.
	m.vm.ClearInterrupt()
	defer m.vm.ClearInterrupt()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	return fn()
}
