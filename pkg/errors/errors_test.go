// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	err := inkerr.New(inkerr.CodeHostCommandNotFound, "no such command")
	assert.Equal(t, inkerr.CodeHostCommandNotFound, inkerr.CodeOf(err))
}

func TestCodeOf_NilAndPlainErrors(t *testing.T) {
	assert.Equal(t, inkerr.Code(""), inkerr.CodeOf(nil))
	assert.Equal(t, inkerr.Code(""), inkerr.CodeOf(stderrors.New("plain")))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("underlying")
	err := inkerr.Wrap(cause, inkerr.CodeStoreReadFailure, "reading installed set")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, inkerr.CodeStoreReadFailure, inkerr.CodeOf(err))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.NoError(t, inkerr.Wrap(nil, inkerr.CodeStoreReadFailure, "nope"))
	assert.NoError(t, inkerr.Wrapf(nil, inkerr.CodeStoreReadFailure, "nope %d", 1))
}

func TestErrorf_FormatsMessage(t *testing.T) {
	err := inkerr.Errorf(inkerr.CodeHostExtensionNotFound, "extension %q not loaded", "word-counter")
	assert.Contains(t, err.Error(), `extension "word-counter" not loaded`)
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not_found", inkerr.New(inkerr.CodeHostExtensionNotFound, "x"), inkerr.IsNotFound, true},
		{"not_found negative", inkerr.New(inkerr.CodeHostHandlerFailure, "x"), inkerr.IsNotFound, false},
		{"timeout", inkerr.New(inkerr.CodeTransportCallTimeout, "x"), inkerr.IsTimeout, true},
		{"invalid manifest", inkerr.New(inkerr.CodeManifestValidateInvalid, "x"), inkerr.IsInvalidInput, true},
		{"conflict", inkerr.New(inkerr.CodeHostExtensionConflict, "x"), inkerr.IsConflict, true},
		{"nil", nil, inkerr.IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{inkerr.New(inkerr.CodeStoreNoteNotFound, "x"), http.StatusNotFound},
		{inkerr.New(inkerr.CodeHostExtensionConflict, "x"), http.StatusConflict},
		{inkerr.New(inkerr.CodeManifestValidateInvalid, "x"), http.StatusBadRequest},
		{inkerr.New(inkerr.CodeTransportCallTimeout, "x"), http.StatusGatewayTimeout},
		{inkerr.New(inkerr.CodeHostHandlerFailure, "x"), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, inkerr.HTTPStatus(tt.err))
		})
	}
}

func TestFields_AttachedToError(t *testing.T) {
	err := inkerr.New(inkerr.CodeHostHandlerFailure, "boom",
		inkerr.FieldExtension("word-counter"),
		inkerr.FieldCommand("count"),
	)
	require.Error(t, err)
	assert.Equal(t, inkerr.CodeHostHandlerFailure, inkerr.CodeOf(err))
}
