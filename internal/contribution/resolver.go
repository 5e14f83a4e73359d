// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package contribution

import "sync"

// Mode is a conflict-resolution policy for one extension point.
type Mode string

const (
	// ModeExclusive renders only the highest-priority contribution.
	ModeExclusive Mode = "exclusive-priority"
	// ModeTabs renders all contributions as mutually exclusive tabs, the
	// highest-priority one active by default.
	ModeTabs Mode = "multiplexed-tabs"
	// ModeMultiple renders every contribution at once.
	ModeMultiple Mode = "simultaneous-multiple"
)

// Layout is the axis ModeMultiple lays contributions out on.
type Layout string

const (
	LayoutVertical   Layout = "vertical"
	LayoutHorizontal Layout = "horizontal"
)

// Valid reports whether m names a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeExclusive, ModeTabs, ModeMultiple:
		return true
	}
	return false
}

// Policy is the resolver's per-extension-point configuration.
type Policy struct {
	Mode   Mode
	Layout Layout // only meaningful for ModeMultiple
}

// Resolution is what the UI renders at one extension point: the policy
// applied to the point's current contributions. ActiveID is set for
// ModeTabs (the default active tab) and for ModeExclusive (the single
// visible contribution).
type Resolution struct {
	Slot    string         `json:"slot"`
	Mode    Mode           `json:"mode"`
	Layout  Layout         `json:"layout,omitempty"`
	Visible []Contribution `json:"visible"`
	// ActiveID is the id of the highest-priority contribution.
	ActiveID string `json:"activeId,omitempty"`
}

// Resolver maps extension points to policies. New extension points need
// only a policy entry; nothing downstream special-cases a point.
type Resolver struct {
	mu       sync.RWMutex
	policies map[string]Policy
	fallback Policy
}

// NewResolver creates a Resolver whose unconfigured points fall back to
// ModeMultiple with a vertical layout.
func NewResolver() *Resolver {
	return &Resolver{
		policies: make(map[string]Policy),
		fallback: Policy{Mode: ModeMultiple, Layout: LayoutVertical},
	}
}

// SetPolicy configures the policy for an extension point.
func (r *Resolver) SetPolicy(slot string, p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[slot] = p
}

// Policy returns the policy for an extension point, falling back to the
// default for unconfigured points.
func (r *Resolver) Policy(slot string) Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.policies[slot]; ok {
		return p
	}
	return r.fallback
}

// Resolve applies the extension point's policy to the registry's current
// contributions for it. Contributions arrive sorted by descending
// priority, so the first entry is both the exclusive winner and the
// default active tab.
func (r *Resolver) Resolve(slot string, registry *Registry) Resolution {
	policy := r.Policy(slot)
	entries := registry.Get(slot)

	res := Resolution{
		Slot:    slot,
		Mode:    policy.Mode,
		Visible: entries,
	}
	if policy.Mode == ModeMultiple {
		res.Layout = policy.Layout
	}
	if len(entries) == 0 {
		return res
	}

	switch policy.Mode {
	case ModeExclusive:
		res.Visible = entries[:1]
		res.ActiveID = entries[0].ID
	case ModeTabs:
		res.ActiveID = entries[0].ID
	}
	return res
}
