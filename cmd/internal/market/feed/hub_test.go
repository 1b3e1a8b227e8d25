package feed

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"gameswap/cmd/internal/market"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFeedOffer(id string) market.Offer {
	return market.Offer{
		ID:          id,
		GameTitle:   "Stardew Valley",
		Platform:    "PC",
		Condition:   "new",
		Price:       14.99,
		Description: "Sealed collector's box.",
		SellerID:    "seller-1",
		CreatedAt:   time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
	}
}

func recvEvent(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case ev := <-sub.Send:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
		return Event{}
	}
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger(), 8)
	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(a.ID)
	defer hub.Unsubscribe(b.ID)

	if hub.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", hub.SubscriberCount())
	}

	offer := testFeedOffer("offer-1")
	hub.Publish(Created(offer, offer.CreatedAt))

	for _, sub := range []*Subscriber{a, b} {
		ev := recvEvent(t, sub)
		if ev.Type != TypeOfferCreated || ev.OfferID != "offer-1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.Offer == nil || ev.Offer.GameTitle != offer.GameTitle {
			t.Fatalf("event missing offer payload: %+v", ev)
		}
	}
}

func TestHub_PublishDropsOnBackpressure(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger(), wsMinSendQueueSize)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub.ID)

	// Fill the queue and keep publishing. Publish must return without
	// blocking and the overflow is dropped.
	for i := 0; i < wsMinSendQueueSize+5; i++ {
		hub.Publish(Deleted("offer-x", time.Now().UTC()))
	}

	received := 0
	for {
		select {
		case <-sub.Send:
			received++
		default:
			if received != wsMinSendQueueSize {
				t.Fatalf("expected %d queued events, got %d", wsMinSendQueueSize, received)
			}
			return
		}
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger(), 8)
	sub := hub.Subscribe()

	hub.Unsubscribe(sub.ID)

	select {
	case <-sub.Done():
	default:
		t.Fatalf("subscriber not signalled after unsubscribe")
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}

	hub.Publish(Deleted("offer-y", time.Now().UTC()))
	select {
	case ev := <-sub.Send:
		t.Fatalf("unexpected delivery after unsubscribe: %+v", ev)
	default:
	}

	// Idempotent for unknown ids too.
	hub.Unsubscribe(sub.ID)
	hub.Unsubscribe("no-such-subscriber")
}

func TestHub_PublishSkipsClosedSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger(), 8)
	closed := hub.Subscribe()
	open := hub.Subscribe()
	defer hub.Unsubscribe(open.ID)
	defer hub.Unsubscribe(closed.ID)

	// A subscriber that shut down on its own is skipped even while it is
	// still registered.
	closed.Close()

	hub.Publish(Deleted("offer-z", time.Now().UTC()))

	if ev := recvEvent(t, open); ev.OfferID != "offer-z" {
		t.Fatalf("open subscriber missed event: %+v", ev)
	}
	select {
	case ev := <-closed.Send:
		t.Fatalf("closed subscriber received event: %+v", ev)
	default:
	}
}

func TestEventConstructors(t *testing.T) {
	t.Parallel()

	offer := testFeedOffer("offer-ev")
	ts := time.Date(2025, 7, 2, 8, 0, 0, 0, time.UTC)

	created := Created(offer, ts)
	if created.Type != TypeOfferCreated || created.OfferID != offer.ID || created.Offer == nil {
		t.Fatalf("created event malformed: %+v", created)
	}

	updated := Updated(offer, ts)
	if updated.Type != TypeOfferUpdated || updated.Offer == nil {
		t.Fatalf("updated event malformed: %+v", updated)
	}

	deleted := Deleted(offer.ID, ts)
	if deleted.Type != TypeOfferDeleted || deleted.OfferID != offer.ID {
		t.Fatalf("deleted event malformed: %+v", deleted)
	}
	if deleted.Offer != nil {
		t.Fatalf("deleted event carries offer payload: %+v", deleted)
	}
}
