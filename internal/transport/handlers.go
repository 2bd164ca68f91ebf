package transport

import "github.com/philipparndt/gomeasure/internal/protocol"

type handlerEntry struct {
	id uint32
	fn Handler
}

// Handlers is a per-type handler registry. It is only used from the event
// loop goroutine and needs no locking.
type Handlers struct {
	byType map[protocol.MessageType][]handlerEntry
	nextID uint32
}

// Subscription allows removing a registered handler
type Subscription struct {
	id  uint32
	t   protocol.MessageType
	reg *Handlers
}

// Remove unregisters the handler. Removing twice is harmless.
func (s Subscription) Remove() {
	if s.reg == nil {
		return
	}
	entries := s.reg.byType[s.t]
	for i := range entries {
		if entries[i].id == s.id {
			s.reg.byType[s.t] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Add registers fn for t and returns its subscription
func (h *Handlers) Add(t protocol.MessageType, fn Handler) Subscription {
	if h.byType == nil {
		h.byType = make(map[protocol.MessageType][]handlerEntry)
	}
	h.nextID++
	h.byType[t] = append(h.byType[t], handlerEntry{id: h.nextID, fn: fn})
	return Subscription{id: h.nextID, t: t, reg: h}
}

// Dispatch calls every handler for env.Type in registration order and
// returns how many ran. Handlers may subscribe or unsubscribe while running;
// the change applies to the next dispatch.
func (h *Handlers) Dispatch(env protocol.Envelope) int {
	entries := h.byType[env.Type]
	if len(entries) == 0 {
		return 0
	}
	snapshot := make([]handlerEntry, len(entries))
	copy(snapshot, entries)
	for _, e := range snapshot {
		e.fn(env)
	}
	return len(snapshot)
}

// Count returns the number of handlers registered for t
func (h *Handlers) Count(t protocol.MessageType) int {
	return len(h.byType[t])
}
