// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package jsmod

import (
	"context"

	"github.com/dop251/goja"

	"github.com/inkwell-notes/inkwell/internal/host"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// bridgeObject builds the global `inkwell` object scripts use to reach the
// host. Every function checks the scoped API at call time, so bridge calls
// after deactivation throw instead of touching stale state.
func (m *Module) bridgeObject() *goja.Object {
	obj := m.vm.NewObject()

	_ = obj.Set("registerCommand", func(call goja.FunctionCall) goja.Value {
		api := m.mustAPI()
		commandID := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(m.vm.NewTypeError("registerCommand: handler is not a function"))
		}
		api.RegisterCommand(commandID, m.callableHandler(fn))
		return goja.Undefined()
	})

	_ = obj.Set("registerEvent", func(call goja.FunctionCall) goja.Value {
		api := m.mustAPI()
		event := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(m.vm.NewTypeError("registerEvent: handler is not a function"))
		}
		api.RegisterEvent(event, m.callableHandler(fn))
		return goja.Undefined()
	})

	_ = obj.Set("unregisterCommand", func(call goja.FunctionCall) goja.Value {
		m.mustAPI().UnregisterCommand(call.Argument(0).String())
		return goja.Undefined()
	})

	_ = obj.Set("unregisterEvent", func(call goja.FunctionCall) goja.Value {
		m.mustAPI().UnregisterEvent(call.Argument(0).String())
		return goja.Undefined()
	})

	_ = obj.Set("callHostAPI", func(call goja.FunctionCall) goja.Value {
		api := m.mustAPI()
		name := call.Argument(0).String()

		var args map[string]any
		if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
			args, _ = arg.Export().(map[string]any)
		}

		result, err := api.Call(m.bridgeContext(), name, args)
		if err != nil {
			panic(m.vm.NewGoError(err))
		}
		return m.vm.ToValue(result)
	})

	_ = obj.Set("log", func(call goja.FunctionCall) goja.Value {
		m.logger.Info(call.Argument(0).String(), "extension", m.id)
		return goja.Undefined()
	})

	return obj
}

// callableHandler adapts a script function to a host.HandlerFunc. The
// handler enters the VM, so it serializes on the module mutex like every
// other evaluation.
func (m *Module) callableHandler(fn goja.Callable) host.HandlerFunc {
	return func(ctx context.Context, data map[string]any) (any, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		v, err := m.runHeldLocked(ctx, func() (goja.Value, error) {
			return fn(goja.Undefined(), m.vm.ToValue(data))
		})
		if err != nil {
			return nil, inkerr.Wrapf(err, inkerr.CodeHostHandlerFailure,
				"script handler in %s", m.id)
		}

		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			return nil, nil
		}
		return v.Export(), nil
	}
}

// mustAPI returns the scoped API or throws into the running script.
func (m *Module) mustAPI() *host.API {
	m.apiMu.Lock()
	defer m.apiMu.Unlock()
	if m.api == nil {
		panic(m.vm.NewGoError(inkerr.Errorf(inkerr.CodeHostHandlerFailure,
			"extension %s is not activated", m.id)))
	}
	return m.api
}

// bridgeContext is the context of the VM entry the bridge call came from.
func (m *Module) bridgeContext() context.Context {
	if m.callCtx != nil {
		return m.callCtx
	}
	return context.Background()
}
