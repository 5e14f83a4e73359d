// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package contribution aggregates the declarative UI contributions of
// activated extensions, keyed by extension point, and resolves how
// colliding contributions at one point should be rendered.
package contribution

import (
	"sort"
	"sync"

	"github.com/inkwell-notes/inkwell/pkg/manifest"
)

// StatusBarSlot is the extension-point key for status bar items.
const StatusBarSlot = "statusBar"

// Contribution is a declared extension-point entry enriched with its
// owner's identity.
type Contribution struct {
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName"`
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text,omitempty"`
	Slot      string `json:"slot"`
	Priority  int    `json:"priority"`
	Command   string `json:"command,omitempty"`
}

// Registry maps extension-point keys to contribution lists, each kept
// sorted by descending priority with registration order preserved for
// ties.
type Registry struct {
	mu    sync.RWMutex
	slots map[string][]Contribution
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string][]Contribution)}
}

// AddManifest registers every contribution a manifest declares, in
// declaration order. Called when the owning extension activates.
func (r *Registry) AddManifest(m *manifest.Manifest) {
	if m == nil || m.Contributes == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range m.Contributes.Panels {
		r.addLocked(Contribution{
			OwnerID:   m.ID,
			OwnerName: m.Name,
			ID:        p.ID,
			Title:     p.Title,
			Slot:      p.ViewType,
			Priority:  p.Priority,
			Command:   p.Command,
		})
	}
	for _, item := range m.Contributes.StatusBar {
		r.addLocked(Contribution{
			OwnerID:   m.ID,
			OwnerName: m.Name,
			ID:        item.ID,
			Text:      item.Text,
			Slot:      StatusBarSlot,
			Priority:  item.Priority,
			Command:   item.Command,
		})
	}
}

// Add registers a single contribution.
func (r *Registry) Add(c Contribution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(c)
}

// addLocked appends and re-sorts. The stable sort keeps earlier-registered
// entries ahead of the appended one on equal priority, so ties preserve
// declaration order without extra bookkeeping.
func (r *Registry) addLocked(c Contribution) {
	entries := append(r.slots[c.Slot], c)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})
	r.slots[c.Slot] = entries
}

// RemoveOwner prunes every contribution owned by an extension across all
// extension points. Called when the owning extension deactivates.
func (r *Registry) RemoveOwner(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for slot, entries := range r.slots {
		kept := entries[:0]
		for _, c := range entries {
			if c.OwnerID != ownerID {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(r.slots, slot)
			continue
		}
		r.slots[slot] = kept
	}
}

// Get returns the contributions registered at an extension point, sorted
// by descending priority, declaration order for ties. The returned slice
// is a copy.
func (r *Registry) Get(slot string) []Contribution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.slots[slot]
	out := make([]Contribution, len(entries))
	copy(out, entries)
	return out
}

// Slots returns the sorted extension-point keys with at least one
// contribution.
func (r *Registry) Slots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.slots))
	for slot := range r.slots {
		keys = append(keys, slot)
	}
	sort.Strings(keys)
	return keys
}
