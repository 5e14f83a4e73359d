// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package transport implements the correlated request/response messaging
// layer between the host and the isolated extension context. Requests carry
// monotonically increasing ids; each id has at most one pending call, and
// ids are never reused while a response is outstanding.
package transport

// Kind discriminates the request variants crossing the isolation boundary.
type Kind string

const (
	KindLoadPlugin       Kind = "loadPlugin"
	KindActivatePlugin   Kind = "activatePlugin"
	KindDeactivatePlugin Kind = "deactivatePlugin"
	KindExecuteCommand   Kind = "executeCommand"
	KindEmitEvent        Kind = "emitEvent"
	KindUnloadPlugin     Kind = "unloadPlugin"
)

// Message is the sealed set of request payloads. The isolated side switches
// over the concrete types, so adding a variant forces every dispatcher to
// handle it.
type Message interface {
	Kind() Kind
}

// LoadPlugin asks the isolated side to load and initialize a module.
type LoadPlugin struct {
	PluginID    string
	EntryURL    string
	Permissions []string
}

func (LoadPlugin) Kind() Kind { return KindLoadPlugin }

// CommandSpec maps a declared command id to the module function servicing it.
type CommandSpec struct {
	ID          string
	HandlerName string
}

// ActivatePlugin runs a loaded module's activation hook and registers its
// declared commands.
type ActivatePlugin struct {
	PluginID string
	Commands []CommandSpec
}

func (ActivatePlugin) Kind() Kind { return KindActivatePlugin }

// DeactivatePlugin runs the deactivation hook (if any) and removes every
// registration owned by the extension.
type DeactivatePlugin struct {
	PluginID string
}

func (DeactivatePlugin) Kind() Kind { return KindDeactivatePlugin }

// ExecuteCommand invokes a registered command handler.
type ExecuteCommand struct {
	CommandID string
	Data      map[string]any
}

func (ExecuteCommand) Kind() Kind { return KindExecuteCommand }

// EmitEvent broadcasts to every subscriber of the named event.
type EmitEvent struct {
	Event string
	Data  map[string]any
}

func (EmitEvent) Kind() Kind { return KindEmitEvent }

// UnloadPlugin tears down a loaded module. Unloading a non-loaded id is a
// silent no-op.
type UnloadPlugin struct {
	PluginID string
}

func (UnloadPlugin) Kind() Kind { return KindUnloadPlugin }

// Request is the envelope forwarded across the isolation boundary.
type Request struct {
	ID  uint64
	Msg Message
}

// Status tags a response as success, result, or error.
type Status string

const (
	StatusSuccess Status = "success"
	StatusResult  Status = "result"
	StatusError   Status = "error"
)

// Response is the envelope returned from the isolated side. Error responses
// reject the caller; success and result responses resolve it, the latter
// carrying a payload.
type Response struct {
	ID     uint64
	Status Status
	Result any
	Error  string
}

// NewSuccess builds a payload-less success response.
func NewSuccess(id uint64) Response {
	return Response{ID: id, Status: StatusSuccess}
}

// NewResult builds a response carrying a payload.
func NewResult(id uint64, result any) Response {
	return Response{ID: id, Status: StatusResult, Result: result}
}

// NewError builds an error response carrying the failure message.
func NewError(id uint64, err error) Response {
	return Response{ID: id, Status: StatusError, Error: err.Error()}
}
