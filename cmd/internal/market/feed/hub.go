package feed

import (
	"log/slog"
	"os"
	"sync"
)

// Hub is the in-memory subscription + broadcast fanout primitive.
//
// Concurrency guarantees:
// - Subscribe/Unsubscribe are safe under concurrent Publish.
// - Publish never blocks (drops under backpressure).
// - Publish is panic-safe because Subscriber.Send is never closed by the hub.
type Hub struct {
	log       *slog.Logger
	queueSize int

	mu   sync.RWMutex
	subs map[string]*Subscriber
}

// NewHub constructs a Hub. queueSize bounds each subscriber's send queue.
func NewHub(log *slog.Logger, queueSize int) *Hub {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Hub{
		log:       log,
		queueSize: queueSize,
		subs:      make(map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber and returns its handle.
func (h *Hub) Subscribe() *Subscriber {
	sub := newSubscriber(h.queueSize)

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	h.log.Info("feed.subscribe", "subscriber_id", sub.ID)
	return sub
}

// Unsubscribe removes a subscriber and signals its shutdown.
func (h *Hub) Unsubscribe(id string) {
	if id == "" {
		return
	}

	var sub *Subscriber

	h.mu.Lock()
	sub = h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()

	// Signal shutdown after removing from the map. This ordering avoids race
	// windows where a publisher still holds a pointer while the subscriber
	// goroutines are being torn down.
	if sub != nil {
		sub.Close()
	}

	h.log.Info("feed.unsubscribe", "subscriber_id", id)
}

// Publish fanouts an event to all subscribers.
// Non-blocking: if a queue is full or the subscriber is shutting down, the
// event is dropped for that subscriber.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub == nil {
			continue
		}

		select {
		case <-sub.Done():
			// Skip subscribers that are shutting down.
			continue
		default:
		}

		select {
		case sub.Send <- ev:
		default:
			// Drop rather than block the publisher.
		}
	}
}

// SubscriberCount reports the current number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
