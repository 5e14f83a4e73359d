// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package manifest

import (
	"fmt"
	"regexp"
	"strings"

	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// semverRe matches strict semver (no "v" prefix): MAJOR.MINOR.PATCH[-prerelease][+build].
// Leading zeros on numeric segments are disallowed per semver spec.
var semverRe = regexp.MustCompile(
	`^(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)` +
		`(?:-(?:[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?` +
		`(?:\+(?:[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`,
)

// permissionRe matches valid permission pattern characters. Kept in sync
// with internal/security so enforcement never sees a malformed pattern.
var permissionRe = regexp.MustCompile(`^[a-zA-Z0-9.*_\-]+$`)

// Validate checks that the Manifest carries every required field and that
// each field is well-formed. Missing any required field rejects the whole
// manifest.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errMissingField("id")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errMissingField("name")
	}
	if strings.TrimSpace(m.Version) == "" {
		return errMissingField("version")
	}
	if !semverRe.MatchString(m.Version) {
		return inkerr.Errorf(inkerr.CodeManifestValidateInvalid,
			"manifest %s: version must be valid semver (MAJOR.MINOR.PATCH), got %q", m.ID, m.Version)
	}
	if strings.TrimSpace(m.Main) == "" {
		return errMissingField("main")
	}
	if m.Permissions == nil {
		return errMissingField("permissions")
	}
	if m.Contributes == nil {
		return errMissingField("contributes")
	}

	for i, perm := range m.Permissions {
		if err := validatePermission(perm); err != nil {
			return inkerr.Wrapf(err, inkerr.CodeManifestValidateInvalid,
				"manifest %s: permissions[%d]", m.ID, i)
		}
	}

	return m.Contributes.validate(m.ID)
}

func (c *Contributions) validate(owner string) error {
	for i, p := range c.Panels {
		if p.ID == "" || p.ViewType == "" {
			return inkerr.Errorf(inkerr.CodeManifestValidateInvalid,
				"manifest %s: panels[%d] requires id and viewType", owner, i)
		}
	}
	for i, s := range c.StatusBar {
		if s.ID == "" {
			return inkerr.Errorf(inkerr.CodeManifestValidateInvalid,
				"manifest %s: statusBar[%d] requires id", owner, i)
		}
	}
	for i, cmd := range c.Commands {
		if cmd.ID == "" || cmd.HandlerName == "" {
			return inkerr.Errorf(inkerr.CodeManifestValidateInvalid,
				"manifest %s: commands[%d] requires id and handlerName", owner, i)
		}
	}
	return nil
}

func validatePermission(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("permission must not be empty")
	}
	if !permissionRe.MatchString(pattern) {
		return fmt.Errorf("permission %q contains invalid characters", pattern)
	}
	if strings.HasPrefix(pattern, ".") || strings.HasSuffix(pattern, ".") {
		return fmt.Errorf("permission %q must not start or end with a dot", pattern)
	}
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("permission %q contains consecutive dots", pattern)
	}
	return nil
}

func errMissingField(field string) error {
	return inkerr.Errorf(inkerr.CodeManifestValidateInvalid,
		"manifest validation: required field %q is missing", field)
}

func errParse(err error) error {
	return inkerr.Wrapf(err, inkerr.CodeManifestValidateInvalid, "manifest parse")
}
