// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package errors defines Inkwell's machine-readable error codes and the
// helpers used to create, wrap, and classify errors across the codebase.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeManifestValidateInvalid Code = "manifest.validate.invalid"

	CodeRegistryFetchFailure    Code = "registry.fetch.failure"
	CodeRegistryDecodeInvalid   Code = "registry.decode.invalid_format"
	CodeRegistryEntryNotFound   Code = "registry.entry.not_found"
	CodeRegistryManifestInvalid Code = "registry.manifest.invalid"

	CodeTransportCallTimeout    Code = "transport.call.timeout"
	CodeTransportBoundaryClosed Code = "transport.boundary.closed"
	CodeTransportSendFailure    Code = "transport.send.failure"
	CodeTransportCallRejected   Code = "transport.call.rejected"

	CodeHostExtensionConflict Code = "host.extension.load.conflict"
	CodeHostExtensionNotFound Code = "host.extension.not_found"
	CodeHostCommandNotFound   Code = "host.command.not_found"
	CodeHostHandlerFailure    Code = "host.handler.failure"
	CodeHostLoaderUnsupported Code = "host.loader.unsupported"
	CodeHostLoadFailure       Code = "host.load.failure"

	CodeLifecycleManifestNotFound Code = "lifecycle.manifest.not_found"

	CodeSecurityCapabilityInvalid Code = "security.capability.invalid"

	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreOpenFailure        Code = "store.open.failure"
	CodeStoreReadFailure        Code = "store.read.failure"
	CodeStoreWriteFailure       Code = "store.write.failure"
	CodeStoreDecodeInvalid      Code = "store.decode.invalid_format"
	CodeStoreNoteNotFound       Code = "store.note.not_found"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerEntityNotFound  Code = "server.entity.not_found"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// FieldExtension tags an error with the owning extension id.
func FieldExtension(value string) Attr {
	return Field("extension", value)
}

// FieldCommand tags an error with a command id.
func FieldCommand(value string) Attr {
	return Field("command", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_value" || r == "invalid_format"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

// HTTPStatus maps an error's code to the status the server surfaces.
func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
