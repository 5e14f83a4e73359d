// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package host

import (
	"context"
	"sort"
	"sync"

	"github.com/inkwell-notes/inkwell/internal/security"
	inkerr "github.com/inkwell-notes/inkwell/pkg/errors"
)

// HostFunc is a host-provided function exposed to extensions through the
// capability-scoped API.
type HostFunc func(ctx context.Context, args map[string]any) (any, error)

type surfaceEntry struct {
	name       string
	permission string
	fn         HostFunc
}

// Surface is the full host API function registry. Each entry carries the
// permission that gates it; scoped API objects are built from the surface
// at activation time.
type Surface struct {
	mu      sync.RWMutex
	entries map[string]surfaceEntry
}

// NewSurface creates an empty Surface.
func NewSurface() *Surface {
	return &Surface{entries: make(map[string]surfaceEntry)}
}

// Register adds a host function under its fully qualified dotted name
// (e.g. "text.transform.replaceContent"), gated by permission.
func (s *Surface) Register(name, permission string, fn HostFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = surfaceEntry{name: name, permission: permission, fn: fn}
}

// Names returns the sorted names of all registered functions.
func (s *Surface) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// scoped returns the functions visible to an extension with the given
// granted set. Functions outside the set are simply absent.
func (s *Surface) scoped(granted security.CapabilitySet) map[string]HostFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()

	funcs := make(map[string]HostFunc)
	for name, entry := range s.entries {
		if granted.Contains(entry.permission) {
			funcs[name] = entry.fn
		}
	}
	return funcs
}

// API is the capability-scoped object handed to an extension at activation.
// It holds only the host functions the extension's permissions grant —
// ungranted capabilities are invisible, not merely blocked. Registration
// functions are granted unconditionally: they affect only the extension's
// own entries and reach no host-privileged resource.
type API struct {
	owner string
	funcs map[string]HostFunc
	host  *Host
}

// Owner returns the id of the extension this API was built for.
func (a *API) Owner() string { return a.owner }

// Lookup resolves a granted host function by its fully qualified name.
// Ungranted or unknown names report absence; there is no denial message.
func (a *API) Lookup(name string) (HostFunc, bool) {
	fn, ok := a.funcs[name]
	return fn, ok
}

// Call invokes a granted host function. Absent names fail as a lookup
// error, indistinguishable from a function that does not exist.
func (a *API) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	fn, ok := a.funcs[name]
	if !ok {
		return nil, inkerr.Errorf(inkerr.CodeHostCommandNotFound,
			"host API function %q not found", name)
	}
	return fn(ctx, args)
}

// Granted returns the sorted names of the host functions visible to the
// owning extension.
func (a *API) Granted() []string {
	names := make([]string, 0, len(a.funcs))
	for name := range a.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterCommand registers a command handler owned by this extension.
// Re-registering an already-used command id overwrites the previous
// registration (last-write-wins) with a logged warning.
func (a *API) RegisterCommand(commandID string, fn HandlerFunc) {
	a.host.registerCommand(a.owner, commandID, fn)
}

// UnregisterCommand removes a command registration if this extension owns it.
func (a *API) UnregisterCommand(commandID string) {
	a.host.unregisterCommand(a.owner, commandID)
}

// RegisterEvent subscribes this extension to the named event.
func (a *API) RegisterEvent(event string, fn HandlerFunc) {
	a.host.registerEvent(a.owner, event, fn)
}

// UnregisterEvent removes this extension's subscription to the named event.
func (a *API) UnregisterEvent(event string) {
	a.host.unregisterEvent(a.owner, event)
}
