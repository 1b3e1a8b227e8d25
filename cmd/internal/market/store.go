package market

import "context"

// Store is the persistence boundary for offers. List results are ordered
// newest first (created_at, then id as tiebreaker).
type Store interface {
	Create(ctx context.Context, o Offer) (Offer, error)
	GetByID(ctx context.Context, id string) (Offer, error)
	ListAll(ctx context.Context) ([]Offer, error)
	ListBySeller(ctx context.Context, sellerID string) ([]Offer, error)
	// Update replaces the mutable fields of the row matching both id and
	// seller. ErrNotFound when no row matches.
	Update(ctx context.Context, o Offer) error
	// Delete removes the row matching both id and seller. ErrNotFound when
	// no row matches.
	Delete(ctx context.Context, id, sellerID string) error
}
