// Package notify broadcasts queue events to subscribers. The hub holds no
// queue state of its own; every event carries what listeners need.
package notify

import (
	"slices"
	"sync"

	"github.com/farhanfatur/Attendance-App/internal/logging"
	"github.com/farhanfatur/Attendance-App/internal/sync/conflict"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// Kind identifies an event.
type Kind string

const (
	// KindQueueChanged follows every mutating operation. Snapshot is set.
	KindQueueChanged Kind = "queue.changed"
	// KindServerWins carries the server payload of an item dropped by server-wins.
	KindServerWins Kind = "conflict.server_wins"
	// KindConflictResolved carries the record of any resolved conflict.
	KindConflictResolved Kind = "conflict.resolved"
	// KindPersistenceDegraded reports a failed save. Err is set.
	KindPersistenceDegraded Kind = "persistence.degraded"
)

// Event is delivered to subscribers.
// Seq increases with every mutation, so a consumer can drop a snapshot
// older than one it already applied.
type Event struct {
	Kind          Kind                   `json:"kind"`
	Seq           uint64                 `json:"seq"`
	Snapshot      []queue.QueueItem      `json:"snapshot,omitempty"`
	Stats         *queue.Stats           `json:"stats,omitempty"`
	ItemID        string                 `json:"itemId,omitempty"`
	ActionType    queue.ActionType       `json:"actionType,omitempty"`
	ServerPayload map[string]interface{} `json:"serverPayload,omitempty"`
	Record        *conflict.Record       `json:"record,omitempty"`
	Err           error                  `json:"-"`
}

// Listener receives events.
type Listener func(Event)

// Hub is a subscribe/unsubscribe registry.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]Listener
	nextID    uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[uint64]Listener)}
}

// Subscribe registers fn and returns a function that unregisters it.
// The returned function is safe to call more than once.
func (h *Hub) Subscribe(fn Listener) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Publish delivers ev to every subscriber in registration order.
// A panicking listener is logged and does not stop delivery to the rest.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	slices.Sort(ids)

	for _, id := range ids {
		h.mu.RLock()
		fn, ok := h.listeners[id]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		deliver(fn, ev)
	}
}

func deliver(fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Listener panicked", map[string]interface{}{
				"event": string(ev.Kind),
				"panic": r,
			})
		}
	}()
	fn(ev)
}
