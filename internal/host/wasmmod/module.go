// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package wasmmod

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	wapi "github.com/tetratelabs/wazero/api"

	"github.com/inkwell-notes/inkwell/internal/host"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// envelope is the JSON reply every guest handler returns.
type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Module is one instantiated Wasm extension. Wasm instances are not safe
// for concurrent use; every guest entry goes through the module mutex.
type Module struct {
	id          string
	loader      *Loader
	instance    wapi.Module
	execTimeout time.Duration
	logger      *slog.Logger

	mu sync.Mutex // serializes guest entry

	// api is guarded separately: host functions read it re-entrantly while
	// a guest call holds mu.
	apiMu sync.Mutex
	api   *host.API // set while the extension is activated
}

var _ host.Handle = (*Module)(nil)
var _ host.Activator = (*Module)(nil)
var _ host.Deactivator = (*Module)(nil)

// Init runs the guest's optional init export.
func (m *Module) Init(ctx context.Context) error {
	return m.callHook(ctx, "init")
}

// Activate exposes the scoped API to guest host-function calls, then runs
// the guest's optional activate export. Guest registrations made during
// activate flow through the host functions into api.
func (m *Module) Activate(ctx context.Context, api *host.API) error {
	m.apiMu.Lock()
	m.api = api
	m.apiMu.Unlock()

	return m.callHook(ctx, "activate")
}

// Deactivate runs the guest's optional deactivate export and withdraws the
// scoped API. Host functions invoked afterwards fail.
func (m *Module) Deactivate(ctx context.Context) error {
	err := m.callHook(ctx, "deactivate")

	m.apiMu.Lock()
	m.api = nil
	m.apiMu.Unlock()

	return err
}

// Handler resolves an exported guest function following the handler
// signature (ptr, len) -> packed u64.
func (m *Module) Handler(name string) (host.HandlerFunc, bool) {
	fn := m.instance.ExportedFunction(name)
	if fn == nil {
		return nil, false
	}
	return m.guestHandler(name), true
}

// Close destroys the instance and drops it from the loader's dispatch map.
func (m *Module) Close(ctx context.Context) error {
	if m.loader != nil {
		m.loader.forget(m.id)
	}
	return m.instance.Close(ctx)
}

// callHook invokes a no-arg guest export. Absent exports are successful
// no-ops.
func (m *Module) callHook(ctx context.Context, name string) error {
	fn := m.instance.ExportedFunction(name)
	if fn == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := m.callContext(ctx)
	defer cancel()

	if _, err := fn.Call(ctx); err != nil {
		return inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
			"wasm %s hook in %s", name, m.id)
	}
	return nil
}

// guestHandler adapts the named guest export to a host.HandlerFunc. The
// payload is marshaled to JSON, handed to the guest through its alloc
// export, and the packed reply envelope is decoded back.
func (m *Module) guestHandler(name string) host.HandlerFunc {
	return func(ctx context.Context, data map[string]any) (any, error) {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
				"encoding payload for wasm handler %s.%s", m.id, name)
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		ctx, cancel := m.callContext(ctx)
		defer cancel()

		reply, err := m.callPackedLocked(ctx, name, payload)
		if err != nil {
			return nil, err
		}

		var env envelope
		if err := json.Unmarshal(reply, &env); err != nil {
			return nil, inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
				"decoding reply from wasm handler %s.%s", m.id, name)
		}
		if !env.OK {
			return nil, inkerr.Errorf(inkerr.CodeHostHandlerFailure,
				"wasm handler %s.%s: %s", m.id, name, env.Error)
		}

		if len(env.Result) == 0 {
			return nil, nil
		}
		var result any
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return nil, inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
				"decoding result from wasm handler %s.%s", m.id, name)
		}
		return result, nil
	}
}

// callPackedLocked writes payload into guest memory, calls the export, and
// reads the packed ptr<<32|len reply. Caller holds m.mu.
func (m *Module) callPackedLocked(ctx context.Context, name string, payload []byte) ([]byte, error) {
	fn := m.instance.ExportedFunction(name)
	if fn == nil {
		return nil, inkerr.Errorf(inkerr.CodeHostHandlerFailure,
			"wasm module %s exports no function %q", m.id, name)
	}

	ptr, err := m.writeGuestLocked(ctx, payload)
	if err != nil {
		return nil, err
	}

	raw, err := fn.Call(ctx, uint64(ptr), uint64(len(payload)))
	if err != nil {
		return nil, inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
			"calling wasm function %s.%s", m.id, name)
	}
	if len(raw) != 1 {
		return nil, inkerr.Errorf(inkerr.CodeHostHandlerFailure,
			"wasm function %s.%s returned %d values, want 1", m.id, name, len(raw))
	}

	return m.readPackedLocked(raw[0], name)
}

// writeGuestLocked allocates guest memory via the alloc export and copies
// data into it.
func (m *Module) writeGuestLocked(ctx context.Context, data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}

	raw, err := m.instance.ExportedFunction("alloc").Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
			"wasm alloc in %s", m.id)
	}
	ptr := uint32(raw[0])

	if !m.instance.Memory().Write(ptr, data) {
		return 0, inkerr.Errorf(inkerr.CodeHostHandlerFailure,
			"wasm alloc in %s returned out-of-range pointer %d", m.id, ptr)
	}
	return ptr, nil
}

func (m *Module) readPackedLocked(packed uint64, name string) ([]byte, error) {
	ptr := uint32(packed >> 32)
	size := uint32(packed)
	if size == 0 {
		return nil, nil
	}

	data, ok := m.instance.Memory().Read(ptr, size)
	if !ok {
		return nil, inkerr.Errorf(inkerr.CodeHostHandlerFailure,
			"wasm function %s.%s returned out-of-range reply (%d, %d)", m.id, name, ptr, size)
	}

	// Copy out: the backing slice aliases guest memory and the next alloc
	// may grow (and relocate) it.
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}

func (m *Module) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.execTimeout > 0 {
		return context.WithTimeout(ctx, m.execTimeout)
	}
	return ctx, func() {}
}

// scopedAPI returns the module's API if it is activated.
func (m *Module) scopedAPI() (*host.API, bool) {
	m.apiMu.Lock()
	defer m.apiMu.Unlock()
	return m.api, m.api != nil
}
