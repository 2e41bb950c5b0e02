package feed

import (
	"log/slog"
	"sync"
	"time"
)

// Event is one vote-count change as seen by subscribers.
type Event struct {
	PostID  int64     `json:"post_id"`
	Count   int       `json:"count"`
	Upvoted bool      `json:"upvoted"`
	At      time.Time `json:"ts"`
}

// Subscriber represents one connected session.
//
// Design notes:
// - send is intentionally NOT closed by the hub to avoid panics from concurrent publishers.
// - done signals the session goroutines to stop.
// - close is idempotent.
type Subscriber struct {
	id   string
	send chan Event

	done      chan struct{}
	closeOnce sync.Once
}

func newSubscriber(id string, queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Subscriber{
		id:   id,
		send: make(chan Event, queueSize),
		done: make(chan struct{}),
	}
}

// Events returns the receive side of the subscriber's event queue.
func (s *Subscriber) Events() <-chan Event {
	return s.send
}

// Done returns a channel that is closed when the subscriber is shutting down.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Close signals the subscriber goroutines to stop (idempotent).
// It does NOT close send to keep Publish safe under concurrency.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Hub is the broadcast fanout for vote events.
//
// Concurrency guarantees:
// - Subscribe/Unsubscribe are safe under concurrent Publish.
// - Publish never blocks (drops under backpressure).
type Hub struct {
	log *slog.Logger

	queueSize int

	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger, queueSize int) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:       log,
		queueSize: queueSize,
		subs:      make(map[string]*Subscriber),
	}
}

// Subscribe registers a new session and returns its handle.
func (h *Hub) Subscribe(id string) *Subscriber {
	sub := newSubscriber(id, h.queueSize)

	h.mu.Lock()
	h.subs[id] = sub
	h.mu.Unlock()

	h.log.Info("feed.subscribe", "session_id", id)
	return sub
}

// Unsubscribe removes a session and signals its shutdown.
func (h *Hub) Unsubscribe(id string) {
	var sub *Subscriber

	h.mu.Lock()
	sub = h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()

	// Signal shutdown after removal so no publisher holds a pointer
	// to a subscriber that is mid-teardown.
	if sub != nil {
		sub.Close()
	}

	h.log.Info("feed.unsubscribe", "session_id", id)
}

// Publish fanouts an event to all subscribers.
// Non-blocking: if a queue is full or the session is shutting down, the event is dropped.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		select {
		case <-sub.Done():
			continue
		default:
		}

		select {
		case sub.send <- ev:
		default:
			// Drop rather than block every other subscriber.
		}
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
