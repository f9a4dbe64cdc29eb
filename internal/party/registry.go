package party

import (
	"log/slog"
	"sync"

	"github.com/auxparty/auxparty/internal/broadcast"
)

// eventQueueSize bounds the per-party outbox between commit and broadcast.
const eventQueueSize = 256

// handle is the single-writer serialization point for one party code.
// Mutations take mu exclusively; snapshots take it shared. Events are
// enqueued while the lock is held and drained by one goroutine per party,
// so publications preserve commit order without doing broker work under
// the lock.
type handle struct {
	mu     sync.RWMutex
	events chan broadcast.Event
}

// enqueue appends events to the party's ordered outbox. It never blocks:
// if the outbox is full the event is dropped with a warning, and the next
// snapshot supersedes anything lost.
func (h *handle) enqueue(evs ...broadcast.Event) {
	for _, ev := range evs {
		select {
		case h.events <- ev:
		default:
			slog.Warn("event outbox full, dropping event", "code", ev.Code, "type", ev.Type)
		}
	}
}

// registry maps a party code to its serialization handle.
type registry struct {
	bus broadcast.Broadcaster

	mu      sync.Mutex
	handles map[string]*handle

	// allocMu serializes code allocation across concurrent party creates,
	// so the uniqueness check and the insert cannot interleave.
	allocMu sync.Mutex
}

func newRegistry(bus broadcast.Broadcaster) *registry {
	return &registry{
		bus:     bus,
		handles: make(map[string]*handle),
	}
}

// lookup returns the handle for a code if one exists, without allocating.
func (r *registry) lookup(code string) (*handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[code]
	return h, ok
}

// handle returns the serialization handle for a code, creating it on first
// use. Handles live for the life of the process; parties are never deleted.
func (r *registry) handle(code string) *handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[code]
	if !ok {
		h = &handle{events: make(chan broadcast.Event, eventQueueSize)}
		r.handles[code] = h
		go r.drain(h)
	}
	return h
}

// drain forwards one party's events to the bus in order.
func (r *registry) drain(h *handle) {
	for ev := range h.events {
		r.bus.Publish(ev.Code, ev)
	}
}
