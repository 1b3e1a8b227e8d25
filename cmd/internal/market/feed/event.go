// Package feed broadcasts offer lifecycle events to websocket subscribers.
//
// The feed is push-only: clients receive events and never send data frames.
// Delivery is best-effort; slow consumers lose events rather than stalling
// the publisher.
package feed

import (
	"time"

	"gameswap/cmd/internal/market"
)

// Event types carried on the feed.
const (
	TypeOfferCreated = "offer.created"
	TypeOfferUpdated = "offer.updated"
	TypeOfferDeleted = "offer.deleted"
)

// Event is one feed frame, serialized as JSON text.
// Offer is present for created/updated events and omitted for deletions.
type Event struct {
	Type    string        `json:"type"`
	OfferID string        `json:"offer_id"`
	Offer   *market.Offer `json:"offer,omitempty"`
	TS      time.Time     `json:"ts"`
}

// Created builds an offer.created event.
func Created(o market.Offer, ts time.Time) Event {
	return Event{Type: TypeOfferCreated, OfferID: o.ID, Offer: &o, TS: ts}
}

// Updated builds an offer.updated event.
func Updated(o market.Offer, ts time.Time) Event {
	return Event{Type: TypeOfferUpdated, OfferID: o.ID, Offer: &o, TS: ts}
}

// Deleted builds an offer.deleted event. Only the id survives a deletion.
func Deleted(offerID string, ts time.Time) Event {
	return Event{Type: TypeOfferDeleted, OfferID: offerID, TS: ts}
}
