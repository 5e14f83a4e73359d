// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package security implements the capability model used to scope the host
// API exposed to extensions. Capabilities are dot-separated strings
// (e.g. "text.transform"); a segment exactly "*" in a granted pattern
// matches one or more capability segments.
package security

import (
	"regexp"
	"strings"
)

// capPatternRe matches valid capability pattern characters.
var capPatternRe = regexp.MustCompile(`^[a-zA-Z0-9.*_\-]+$`)

const maxSegments = 16

// ValidatePattern checks that a capability pattern string is well-formed.
// Malformed patterns are rejected at manifest validation time so that set
// membership checks never have to report errors during enforcement.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return errEmptyPattern
	}
	if !capPatternRe.MatchString(pattern) {
		return errInvalidChars(pattern)
	}
	if !isValidDottedString(pattern) {
		return errMalformedDots(pattern)
	}
	if segments := strings.Count(pattern, ".") + 1; segments > maxSegments {
		return errTooManySegments(pattern, segments)
	}
	return nil
}

// CapabilitySet is an immutable set of granted capability patterns.
type CapabilitySet struct {
	patterns []string
}

// NewCapabilitySet constructs a CapabilitySet from the provided patterns.
func NewCapabilitySet(patterns ...string) CapabilitySet {
	copied := append([]string(nil), patterns...)
	return CapabilitySet{patterns: copied}
}

// Patterns returns a copy of the granted patterns.
func (s CapabilitySet) Patterns() []string {
	return append([]string(nil), s.patterns...)
}

// Contains reports whether any granted pattern matches cap. Patterns that
// fail validation are skipped; callers validate at manifest load time.
func (s CapabilitySet) Contains(cap string) bool {
	for _, pattern := range s.patterns {
		if Match(pattern, cap) {
			return true
		}
	}
	return false
}

// Match reports whether cap matches pattern. Matching is dot-segment aware:
// a pattern segment exactly "*" matches one or more capability segments; "*"
// inside a non-"*" segment matches zero or more characters within that
// segment. Malformed inputs never match.
func Match(pattern, cap string) bool {
	if pattern == "" || cap == "" {
		return false
	}
	if !isValidDottedString(pattern) || !isValidDottedString(cap) {
		return false
	}

	ps := strings.Split(pattern, ".")
	cs := strings.Split(cap, ".")
	if len(ps) > maxSegments || len(cs) > maxSegments {
		return false
	}

	return matchSegments(ps, cs)
}

func matchSegments(ps, cs []string) bool {
	if len(ps) == 0 {
		return len(cs) == 0
	}
	if len(cs) == 0 {
		return false
	}

	if ps[0] == "*" {
		// "*" consumes one or more capability segments.
		for skip := 1; skip <= len(cs); skip++ {
			if matchSegments(ps[1:], cs[skip:]) {
				return true
			}
		}
		return false
	}

	if !matchSegment(ps[0], cs[0]) {
		return false
	}
	return matchSegments(ps[1:], cs[1:])
}

func matchSegment(patternSegment, capSegment string) bool {
	if patternSegment == capSegment {
		return true
	}
	if !strings.Contains(patternSegment, "*") {
		return false
	}
	return matchInSegmentGlob(patternSegment, capSegment)
}

func isValidDottedString(s string) bool {
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	return !strings.Contains(s, "..")
}

// matchInSegmentGlob matches pattern and text where '*' matches zero or more
// characters.
func matchInSegmentGlob(pattern, text string) bool {
	pi, ti := 0, 0
	star := -1
	match := 0

	for ti < len(text) {
		if pi < len(pattern) && pattern[pi] == text[ti] {
			pi++
			ti++
			continue
		}
		if pi < len(pattern) && pattern[pi] == '*' {
			star = pi
			match = ti
			pi++
			continue
		}
		if star != -1 {
			pi = star + 1
			match++
			ti = match
			continue
		}
		return false
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
