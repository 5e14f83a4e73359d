// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package wasmmod

import (
	"context"
	"encoding/json"
	"log/slog"

	wapi "github.com/tetratelabs/wazero/api"
)

// instantiateHostModule exports the "inkwell" host module guests import
// from. Every function resolves the calling instance back to its Module,
// so one host module serves all loaded extensions.
func (l *Loader) instantiateHostModule(ctx context.Context) error {
	builder := l.runtime.NewHostModuleBuilder(hostModuleName)

	builder.NewFunctionBuilder().
		WithFunc(l.hostLog).
		Export("log")
	builder.NewFunctionBuilder().
		WithFunc(l.hostRegisterCommand).
		Export("register_command")
	builder.NewFunctionBuilder().
		WithFunc(l.hostRegisterEvent).
		Export("register_event")
	builder.NewFunctionBuilder().
		WithFunc(l.hostCall).
		Export("call_host")

	_, err := builder.Instantiate(ctx)
	return err
}

// hostLog writes a guest log line through the loader's logger.
func (l *Loader) hostLog(_ context.Context, caller wapi.Module, level, ptr, size uint32) {
	msg, ok := readString(caller, ptr, size)
	if !ok {
		return
	}

	lvl := slog.LevelInfo
	switch level {
	case 0:
		lvl = slog.LevelDebug
	case 2:
		lvl = slog.LevelWarn
	case 3:
		lvl = slog.LevelError
	}
	l.logger.Log(context.Background(), lvl, msg, "extension", caller.Name())
}

// hostRegisterCommand registers the named guest export as the handler for
// a command id. Ignored outside activation.
func (l *Loader) hostRegisterCommand(_ context.Context, caller wapi.Module, cmdPtr, cmdLen, handlerPtr, handlerLen uint32) {
	m := l.moduleFor(caller)
	if m == nil {
		return
	}
	api, ok := m.scopedAPI()
	if !ok {
		l.logger.Warn("register_command outside activation ignored", "extension", caller.Name())
		return
	}

	commandID, ok1 := readString(caller, cmdPtr, cmdLen)
	handlerName, ok2 := readString(caller, handlerPtr, handlerLen)
	if !ok1 || !ok2 {
		return
	}

	api.RegisterCommand(commandID, m.guestHandler(handlerName))
}

// hostRegisterEvent subscribes the named guest export to an event.
func (l *Loader) hostRegisterEvent(_ context.Context, caller wapi.Module, evtPtr, evtLen, handlerPtr, handlerLen uint32) {
	m := l.moduleFor(caller)
	if m == nil {
		return
	}
	api, ok := m.scopedAPI()
	if !ok {
		l.logger.Warn("register_event outside activation ignored", "extension", caller.Name())
		return
	}

	event, ok1 := readString(caller, evtPtr, evtLen)
	handlerName, ok2 := readString(caller, handlerPtr, handlerLen)
	if !ok1 || !ok2 {
		return
	}

	api.RegisterEvent(event, m.guestHandler(handlerName))
}

// hostCall invokes a host API function by name with a JSON argument and
// returns the packed reply envelope. Functions outside the extension's
// grant are absent, which surfaces to the guest as a not-found error in
// the envelope.
func (l *Loader) hostCall(ctx context.Context, caller wapi.Module, namePtr, nameLen, argPtr, argLen uint32) uint64 {
	m := l.moduleFor(caller)
	if m == nil {
		return 0
	}

	reply := func(env envelope) uint64 {
		data, err := json.Marshal(env)
		if err != nil {
			return 0
		}
		ptr, err := m.writeGuestLocked(ctx, data)
		if err != nil {
			l.logger.Warn("writing host call reply", "extension", caller.Name(), "error", err)
			return 0
		}
		return uint64(ptr)<<32 | uint64(len(data))
	}
	fail := func(err error) uint64 {
		return reply(envelope{OK: false, Error: err.Error()})
	}

	api, ok := m.scopedAPI()
	if !ok {
		return reply(envelope{OK: false, Error: "extension is not activated"})
	}

	name, ok1 := readString(caller, namePtr, nameLen)
	if !ok1 {
		return 0
	}

	var arg map[string]any
	if argLen > 0 {
		raw, ok := caller.Memory().Read(argPtr, argLen)
		if !ok {
			return reply(envelope{OK: false, Error: "argument out of range"})
		}
		if err := json.Unmarshal(raw, &arg); err != nil {
			return fail(err)
		}
	}

	result, err := api.Call(ctx, name, arg)
	if err != nil {
		return fail(err)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fail(err)
	}
	return reply(envelope{OK: true, Result: resultJSON})
}

func readString(caller wapi.Module, ptr, size uint32) (string, bool) {
	if size == 0 {
		return "", true
	}
	data, ok := caller.Memory().Read(ptr, size)
	if !ok {
		return "", false
	}
	return string(data), true
}
