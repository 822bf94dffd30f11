package events

import (
	"log/slog"
	"sync"
)

// Hub fans published events out to every subscribed push connection.
// Publish never blocks: a subscriber whose buffer is full is dropped and its
// channel closed, the connection then ends and the client reconnects.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64
	log    *slog.Logger

	// OnCount is called with the subscriber count after every change.
	OnCount func(n int)
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		subs: make(map[uint64]chan Event),
		log:  log,
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned cancel
// func is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()
	h.count(n)

	return ch, func() { h.remove(id) }
}

func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	var dropped []uint64
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		close(h.subs[id])
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if len(dropped) > 0 {
		h.log.Warn("dropped slow push subscribers", "count", len(dropped), "event", ev.Type)
		h.count(n)
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	if ok {
		close(ch)
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()
	if ok {
		h.count(n)
	}
}

func (h *Hub) count(n int) {
	if h.OnCount != nil {
		h.OnCount(n)
	}
}
