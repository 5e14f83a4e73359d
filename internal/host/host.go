// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package host implements the isolated side of the extension system: it
// loads extension modules, grants each one a capability-scoped API, and
// services the request messages arriving over the transport. Extension
// code never sees host-privileged state; everything it can reach flows
// through the scoped API built here.
package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/inkwell-notes/inkwell/internal/security"
	"github.com/inkwell-notes/inkwell/internal/transport"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// extensionRecord is the isolated-side record of a loaded extension.
// Created on loadPlugin, destroyed on unloadPlugin.
type extensionRecord struct {
	id      string
	handle  Handle
	granted security.CapabilitySet
	api     *API
}

// Host owns the loaded-extension table and the command/event registration
// tables. All tables are mutated only by the Host's own message handlers;
// the host side of the boundary never reaches in directly.
type Host struct {
	loader  Loader
	surface *Surface
	logger  *slog.Logger

	mu         sync.Mutex
	extensions map[string]*extensionRecord
	commands   map[string]commandRegistration
	events     map[string]map[string]HandlerFunc

	// Reverse indexes for O(owned-entries) cleanup on deactivate/unload.
	ownerCommands map[string]map[string]struct{}
	ownerEvents   map[string]map[string]struct{}
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the host's logger.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// New creates a Host loading modules through loader and exposing surface
// to extensions.
func New(loader Loader, surface *Surface, opts ...HostOption) *Host {
	h := &Host{
		loader:        loader,
		surface:       surface,
		logger:        slog.Default(),
		extensions:    make(map[string]*extensionRecord),
		commands:      make(map[string]commandRegistration),
		events:        make(map[string]map[string]HandlerFunc),
		ownerCommands: make(map[string]map[string]struct{}),
		ownerEvents:   make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve is the isolated side's message loop. Messages are accepted one at
// a time, but each handler runs on its own goroutine so a slow module
// (loading, awaiting a hook) does not block later requests.
func (h *Host) Serve(ctx context.Context, requests <-chan transport.Request, responses chan<- transport.Response) {
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			close(responses)
			return
		case req := <-requests:
			wg.Add(1)
			go func() {
				defer wg.Done()
				responses <- h.handle(ctx, req)
			}()
		}
	}
}

// handle dispatches a single request to its handler and wraps the outcome
// in a response envelope tagged with the request id.
func (h *Host) handle(ctx context.Context, req transport.Request) transport.Response {
	switch msg := req.Msg.(type) {
	case transport.LoadPlugin:
		if err := h.loadExtension(ctx, msg); err != nil {
			return transport.NewError(req.ID, err)
		}
		return transport.NewSuccess(req.ID)

	case transport.ActivatePlugin:
		if err := h.activateExtension(ctx, msg); err != nil {
			return transport.NewError(req.ID, err)
		}
		return transport.NewSuccess(req.ID)

	case transport.DeactivatePlugin:
		if err := h.deactivateExtension(ctx, msg.PluginID); err != nil {
			return transport.NewError(req.ID, err)
		}
		return transport.NewSuccess(req.ID)

	case transport.ExecuteCommand:
		result, err := h.executeCommand(ctx, msg.CommandID, msg.Data)
		if err != nil {
			return transport.NewError(req.ID, err)
		}
		return transport.NewResult(req.ID, result)

	case transport.EmitEvent:
		return transport.NewResult(req.ID, h.emitEvent(ctx, msg.Event, msg.Data))

	case transport.UnloadPlugin:
		h.unloadExtension(ctx, msg.PluginID)
		return transport.NewSuccess(req.ID)

	default:
		return transport.NewError(req.ID, inkerr.Errorf(inkerr.CodeTransportCallRejected,
			"unknown message kind %q", req.Msg.Kind()))
	}
}

// loadExtension loads the module at the descriptor's entry URL, runs its
// initializer, and records it. Loading an already-loaded id is an error;
// the host-side lifecycle manager checks its own loaded-set first and
// never re-sends this message for a loaded id.
func (h *Host) loadExtension(ctx context.Context, msg transport.LoadPlugin) error {
	h.mu.Lock()
	_, exists := h.extensions[msg.PluginID]
	h.mu.Unlock()
	if exists {
		return inkerr.Errorf(inkerr.CodeHostExtensionConflict,
			"extension %q is already loaded", msg.PluginID)
	}

	handle, err := h.loader.Load(ctx, Descriptor{ID: msg.PluginID, EntryURL: msg.EntryURL})
	if err != nil {
		return inkerr.Wrapf(err, inkerr.CodeHostLoadFailure,
			"loading extension %q from %s", msg.PluginID, msg.EntryURL)
	}

	if err := handle.Init(ctx); err != nil {
		if closeErr := handle.Close(ctx); closeErr != nil {
			h.logger.Warn("closing module after failed init", "extension", msg.PluginID, "error", closeErr)
		}
		return inkerr.Wrapf(err, inkerr.CodeHostLoadFailure,
			"initializing extension %q", msg.PluginID)
	}

	record := &extensionRecord{
		id:      msg.PluginID,
		handle:  handle,
		granted: security.NewCapabilitySet(msg.Permissions...),
	}

	h.mu.Lock()
	if _, raced := h.extensions[msg.PluginID]; raced {
		h.mu.Unlock()
		if closeErr := handle.Close(ctx); closeErr != nil {
			h.logger.Warn("closing module after load race", "extension", msg.PluginID, "error", closeErr)
		}
		return inkerr.Errorf(inkerr.CodeHostExtensionConflict,
			"extension %q is already loaded", msg.PluginID)
	}
	h.extensions[msg.PluginID] = record
	h.mu.Unlock()

	h.logger.Info("extension loaded", "extension", msg.PluginID, "entry", msg.EntryURL)
	return nil
}

// activateExtension builds the capability-scoped API, registers the
// manifest's declared commands, and invokes the module's activation hook
// if it has one. A missing hook is a successful no-op.
func (h *Host) activateExtension(ctx context.Context, msg transport.ActivatePlugin) error {
	h.mu.Lock()
	record, ok := h.extensions[msg.PluginID]
	h.mu.Unlock()
	if !ok {
		return inkerr.Errorf(inkerr.CodeHostExtensionNotFound,
			"extension %q not loaded", msg.PluginID)
	}

	api := &API{
		owner: record.id,
		funcs: h.surface.scoped(record.granted),
		host:  h,
	}

	h.mu.Lock()
	record.api = api
	h.mu.Unlock()

	for _, spec := range msg.Commands {
		fn, ok := record.handle.Handler(spec.HandlerName)
		if !ok {
			return inkerr.Errorf(inkerr.CodeHostCommandNotFound,
				"extension %q declares command %q but exports no handler %q",
				msg.PluginID, spec.ID, spec.HandlerName)
		}
		h.registerCommand(record.id, spec.ID, fn)
	}

	if activator, ok := record.handle.(Activator); ok {
		if err := activator.Activate(ctx, api); err != nil {
			return inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
				"activating extension %q", msg.PluginID)
		}
	}

	h.logger.Info("extension activated", "extension", msg.PluginID)
	return nil
}

// deactivateExtension invokes the deactivation hook if present, then
// atomically removes every registration owned by the extension. The hook's
// absence is not an error; its failure is reported after cleanup runs.
func (h *Host) deactivateExtension(ctx context.Context, id string) error {
	h.mu.Lock()
	record, ok := h.extensions[id]
	h.mu.Unlock()
	if !ok {
		return inkerr.Errorf(inkerr.CodeHostExtensionNotFound,
			"extension %q not loaded", id)
	}

	var hookErr error
	if deactivator, ok := record.handle.(Deactivator); ok {
		hookErr = deactivator.Deactivate(ctx)
	}

	h.removeOwned(id)

	if hookErr != nil {
		return inkerr.Wrapf(hookErr, inkerr.CodeHostHandlerFailure,
			"deactivating extension %q", id)
	}

	h.logger.Info("extension deactivated", "extension", id)
	return nil
}

// executeCommand runs the registered handler for commandID. An
// unregistered id is an error; a handler failure propagates to the caller.
func (h *Host) executeCommand(ctx context.Context, commandID string, data map[string]any) (any, error) {
	h.mu.Lock()
	reg, ok := h.commands[commandID]
	h.mu.Unlock()
	if !ok {
		return nil, inkerr.Errorf(inkerr.CodeHostCommandNotFound,
			"command %q not registered", commandID)
	}

	result, err := reg.fn(ctx, data)
	if err != nil {
		return nil, inkerr.Wrap(err, inkerr.CodeHostHandlerFailure,
			"command handler failed",
			inkerr.FieldExtension(reg.owner),
			inkerr.FieldCommand(commandID))
	}
	return result, nil
}

// emitEvent fans out to every subscriber of the named event concurrently
// and joins on all of them, capturing each subscriber's outcome
// independently. One subscriber failing never hides another's result. No
// subscribers yields an empty map, not an error.
func (h *Host) emitEvent(ctx context.Context, event string, data map[string]any) map[string]EventResult {
	h.mu.Lock()
	subscribers := make(map[string]HandlerFunc, len(h.events[event]))
	for owner, fn := range h.events[event] {
		subscribers[owner] = fn
	}
	h.mu.Unlock()

	results := make(map[string]EventResult, len(subscribers))
	if len(subscribers) == 0 {
		return results
	}

	var (
		wg        sync.WaitGroup
		resultsMu sync.Mutex
	)
	for owner, fn := range subscribers {
		wg.Add(1)
		go func(owner string, fn HandlerFunc) {
			defer wg.Done()

			result, err := fn(ctx, data)
			entry := EventResult{OK: err == nil, Result: result}
			if err != nil {
				entry.Result = nil
				entry.Error = err.Error()
				h.logger.Warn("event subscriber failed",
					"event", event, "extension", owner, "error", err)
			}

			resultsMu.Lock()
			results[owner] = entry
			resultsMu.Unlock()
		}(owner, fn)
	}
	wg.Wait()

	return results
}

// unloadExtension removes all registrations owned by id, destroys the
// record, and closes the module handle. Unloading a non-loaded id is a
// silent no-op.
func (h *Host) unloadExtension(ctx context.Context, id string) {
	h.mu.Lock()
	record, ok := h.extensions[id]
	if ok {
		delete(h.extensions, id)
	}
	h.mu.Unlock()

	if !ok {
		h.logger.Debug("unload of non-loaded extension ignored", "extension", id)
		return
	}

	h.removeOwned(id)

	if err := record.handle.Close(ctx); err != nil {
		h.logger.Warn("closing module", "extension", id, "error", err)
	}
	h.logger.Info("extension unloaded", "extension", id)
}

// Loaded reports whether an extension id is currently loaded. Test hook.
func (h *Host) Loaded(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.extensions[id]
	return ok
}
