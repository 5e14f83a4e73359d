// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package security

import (
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

var errEmptyPattern = inkerr.New(inkerr.CodeSecurityCapabilityInvalid,
	"capability pattern must not be empty")

func errInvalidChars(pattern string) error {
	return inkerr.Errorf(inkerr.CodeSecurityCapabilityInvalid,
		"capability pattern %q contains invalid characters", pattern)
}

func errMalformedDots(pattern string) error {
	return inkerr.Errorf(inkerr.CodeSecurityCapabilityInvalid,
		"capability pattern %q has a leading, trailing, or doubled dot", pattern)
}

func errTooManySegments(pattern string, got int) error {
	return inkerr.Errorf(inkerr.CodeSecurityCapabilityInvalid,
		"capability pattern %q exceeds maximum %d segments (has %d)", pattern, maxSegments, got)
}
