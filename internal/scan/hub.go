package scan

import (
	"log/slog"
	"sync"
)

// Hub fans transitions out to any number of subscribers.
// A subscriber that falls behind its buffer is closed rather than blocking the
// coordinator, so it can resubscribe and start again from a snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Transition
	next   int
	buffer int
	closed bool
}

// NewHub creates a Hub with the given per-subscriber buffer
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[int]chan Transition),
		buffer: buffer,
	}
}

// OnTransition implements Listener
func (h *Hub) OnTransition(t Transition) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- t:
		default:
			slog.Warn("Closing slow subscriber", "subscriber", id, "session_id", t.SessionID, "to", t.To)
			delete(h.subs, id)
			close(ch)
		}
	}
}

// Subscribe returns a channel of transitions and a function that ends the subscription
func (h *Hub) Subscribe() (<-chan Transition, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Transition, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Closed reports whether Close has been called
func (h *Hub) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close ends every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.closed = true
}

// Listeners notifies each listener in order
type Listeners []Listener

func (ls Listeners) OnTransition(t Transition) {
	for _, l := range ls {
		l.OnTransition(t)
	}
}

// LogListener logs every transition at info level
func LogListener(logger *slog.Logger) Listener {
	return ListenerFunc(func(t Transition) {
		attrs := []any{"session_id", t.SessionID, "from", t.From, "to", t.To}
		if t.Err != nil {
			attrs = append(attrs, "kind", ErrorKind(t.Err), "error", t.Err)
		}
		logger.Info("Scan state changed", attrs...)
	})
}
