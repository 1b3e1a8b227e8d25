package market

import (
	"context"
	"math"
	"strings"
	"time"

	"gameswap/cmd/identity/ids"
)

// Service manages offer creation, listing, updates and deletion.
// Ownership is enforced here: only the seller may update or delete a
// listing.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	return &Service{store: store}, nil
}

// CreateOffer validates the listing and inserts it.
func (s *Service) CreateOffer(ctx context.Context, in CreateInput) (Offer, error) {
	if err := ctx.Err(); err != nil {
		return Offer{}, err
	}

	sellerID := strings.TrimSpace(in.SellerID)
	gameTitle := strings.TrimSpace(in.GameTitle)
	platform := strings.TrimSpace(in.Platform)
	condition := strings.TrimSpace(in.Condition)
	description := strings.TrimSpace(in.Description)

	if sellerID == "" || gameTitle == "" || platform == "" || condition == "" || description == "" {
		return Offer{}, ErrInvalidInput
	}
	if !validPrice(in.Price) {
		return Offer{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Offer{}, err
	}

	return s.store.Create(ctx, Offer{
		ID:          id,
		GameTitle:   gameTitle,
		Platform:    platform,
		Condition:   condition,
		Price:       in.Price,
		Description: description,
		SellerID:    sellerID,
		CreatedAt:   now,
	})
}

// GetOffer fetches one listing.
func (s *Service) GetOffer(ctx context.Context, id string) (Offer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Offer{}, ErrInvalidInput
	}
	return s.store.GetByID(ctx, id)
}

// ListOffers returns all listings, newest first.
func (s *Service) ListOffers(ctx context.Context) ([]Offer, error) {
	return s.store.ListAll(ctx)
}

// ListBySeller returns one seller's listings, newest first.
func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]Offer, error) {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return nil, ErrInvalidInput
	}
	return s.store.ListBySeller(ctx, sellerID)
}

// UpdateOffer applies a partial update after checking ownership.
// ErrNotFound when the offer does not exist, ErrForbidden when the caller
// is not its seller.
func (s *Service) UpdateOffer(ctx context.Context, in UpdateInput) (Offer, error) {
	if err := ctx.Err(); err != nil {
		return Offer{}, err
	}

	offerID := strings.TrimSpace(in.OfferID)
	sellerID := strings.TrimSpace(in.SellerID)
	if offerID == "" || sellerID == "" {
		return Offer{}, ErrInvalidInput
	}
	if in.GameTitle == nil && in.Platform == nil && in.Condition == nil && in.Price == nil && in.Description == nil {
		return Offer{}, ErrInvalidInput
	}

	current, err := s.store.GetByID(ctx, offerID)
	if err != nil {
		return Offer{}, err
	}
	if current.SellerID != sellerID {
		return Offer{}, ErrForbidden
	}

	next := current
	if in.GameTitle != nil {
		v := strings.TrimSpace(*in.GameTitle)
		if v == "" {
			return Offer{}, ErrInvalidInput
		}
		next.GameTitle = v
	}
	if in.Platform != nil {
		v := strings.TrimSpace(*in.Platform)
		if v == "" {
			return Offer{}, ErrInvalidInput
		}
		next.Platform = v
	}
	if in.Condition != nil {
		v := strings.TrimSpace(*in.Condition)
		if v == "" {
			return Offer{}, ErrInvalidInput
		}
		next.Condition = v
	}
	if in.Price != nil {
		if !validPrice(*in.Price) {
			return Offer{}, ErrInvalidInput
		}
		next.Price = *in.Price
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		if v == "" {
			return Offer{}, ErrInvalidInput
		}
		next.Description = v
	}

	// The store re-checks id+seller, so a concurrent delete surfaces as
	// ErrNotFound instead of resurrecting the row.
	if err := s.store.Update(ctx, next); err != nil {
		return Offer{}, err
	}
	return next, nil
}

// DeleteOffer removes a listing after checking ownership.
func (s *Service) DeleteOffer(ctx context.Context, offerID, sellerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	offerID = strings.TrimSpace(offerID)
	sellerID = strings.TrimSpace(sellerID)
	if offerID == "" || sellerID == "" {
		return ErrInvalidInput
	}

	current, err := s.store.GetByID(ctx, offerID)
	if err != nil {
		return err
	}
	if current.SellerID != sellerID {
		return ErrForbidden
	}

	return s.store.Delete(ctx, offerID, sellerID)
}

func validPrice(p float64) bool {
	return p >= 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
