package market

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore keeps offers in memory. Used when the server runs without
// a database and in tests.
type InMemoryStore struct {
	mu     sync.Mutex
	offers map[string]Offer
}

// NewInMemoryStore constructs an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{offers: make(map[string]Offer)}
}

func (s *InMemoryStore) Create(ctx context.Context, o Offer) (Offer, error) {
	if err := ctx.Err(); err != nil {
		return Offer{}, err
	}
	if o.ID == "" || o.SellerID == "" {
		return Offer{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.offers[o.ID]; exists {
		return Offer{}, ErrInvalidInput
	}
	s.offers[o.ID] = o
	return o, nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, id string) (Offer, error) {
	if err := ctx.Err(); err != nil {
		return Offer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return Offer{}, ErrNotFound
	}
	return o, nil
}

func (s *InMemoryStore) ListAll(ctx context.Context) ([]Offer, error) {
	return s.list(ctx, func(Offer) bool { return true })
}

func (s *InMemoryStore) ListBySeller(ctx context.Context, sellerID string) ([]Offer, error) {
	return s.list(ctx, func(o Offer) bool { return o.SellerID == sellerID })
}

func (s *InMemoryStore) Update(ctx context.Context, o Offer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.offers[o.ID]
	if !ok || cur.SellerID != o.SellerID {
		return ErrNotFound
	}
	s.offers[o.ID] = o
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id, sellerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.offers[id]
	if !ok || cur.SellerID != sellerID {
		return ErrNotFound
	}
	delete(s.offers, id)
	return nil
}

func (s *InMemoryStore) list(ctx context.Context, keep func(Offer) bool) ([]Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Offer, 0, len(s.offers))
	for _, o := range s.offers {
		if keep(o) {
			out = append(out, o)
		}
	}

	// Newest first, id as tiebreaker for stable order.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
