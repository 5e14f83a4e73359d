// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package host

// commandRegistration binds a command id to its handler and owning
// extension.
type commandRegistration struct {
	owner string
	fn    HandlerFunc
}

// EventResult is one subscriber's outcome from an event broadcast.
type EventResult struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (h *Host) registerCommand(owner, commandID string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, exists := h.commands[commandID]; exists {
		h.logger.Warn("command registration overwritten",
			"command", commandID, "previous_owner", prev.owner, "new_owner", owner)
		h.dropOwnerCommandLocked(prev.owner, commandID)
	}

	h.commands[commandID] = commandRegistration{owner: owner, fn: fn}
	if h.ownerCommands[owner] == nil {
		h.ownerCommands[owner] = make(map[string]struct{})
	}
	h.ownerCommands[owner][commandID] = struct{}{}
}

func (h *Host) unregisterCommand(owner, commandID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	reg, ok := h.commands[commandID]
	if !ok || reg.owner != owner {
		return
	}
	delete(h.commands, commandID)
	h.dropOwnerCommandLocked(owner, commandID)
}

func (h *Host) registerEvent(owner, event string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.events[event] == nil {
		h.events[event] = make(map[string]HandlerFunc)
	}
	h.events[event][owner] = fn

	if h.ownerEvents[owner] == nil {
		h.ownerEvents[owner] = make(map[string]struct{})
	}
	h.ownerEvents[owner][event] = struct{}{}
}

func (h *Host) unregisterEvent(owner, event string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropEventLocked(owner, event)
	if set, ok := h.ownerEvents[owner]; ok {
		delete(set, event)
		if len(set) == 0 {
			delete(h.ownerEvents, owner)
		}
	}
}

// removeOwned atomically removes every command registration and event
// subscription owned by an extension. The reverse indexes keep this
// O(owned-entries) instead of a full table scan per lifecycle transition.
func (h *Host) removeOwned(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for commandID := range h.ownerCommands[owner] {
		if reg, ok := h.commands[commandID]; ok && reg.owner == owner {
			delete(h.commands, commandID)
		}
	}
	delete(h.ownerCommands, owner)

	for event := range h.ownerEvents[owner] {
		h.dropEventLocked(owner, event)
	}
	delete(h.ownerEvents, owner)
}

func (h *Host) dropOwnerCommandLocked(owner, commandID string) {
	if set, ok := h.ownerCommands[owner]; ok {
		delete(set, commandID)
		if len(set) == 0 {
			delete(h.ownerCommands, owner)
		}
	}
}

func (h *Host) dropEventLocked(owner, event string) {
	if subs, ok := h.events[event]; ok {
		delete(subs, owner)
		if len(subs) == 0 {
			delete(h.events, event)
		}
	}
}

// CommandOwner returns the owner of a registered command. Test hook.
func (h *Host) CommandOwner(commandID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	reg, ok := h.commands[commandID]
	return reg.owner, ok
}
