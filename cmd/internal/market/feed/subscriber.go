package feed

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// Subscriber represents one connected feed session.
//
// Design notes:
// - Send is intentionally NOT closed by the hub to avoid panics from concurrent publishers.
// - done is used to signal goroutines to stop.
// - Close is idempotent.
type Subscriber struct {
	ID   string
	Send chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// newSubscriber constructs a Subscriber with a bounded send queue.
func newSubscriber(queueSize int) *Subscriber {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Subscriber{
		ID:   newSubscriberID(),
		Send: make(chan Event, queueSize),
		done: make(chan struct{}),
	}
}

// Done returns a channel that is closed when the subscriber is shutting down.
func (s *Subscriber) Done() <-chan struct{} {
	if s == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Close signals the subscriber goroutines to stop (idempotent).
// It does NOT close Send to keep Publish safe under concurrency.
func (s *Subscriber) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// newSubscriberID returns a random 20-char hex session id.
func newSubscriberID() string {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		// Callers should treat empty as an error-like condition in logs/tests.
		return ""
	}
	return hex.EncodeToString(b)
}
