package market

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"gameswap/cmd/identity/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are opt-in and require GAMESWAP_DATABASE_URL.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_OfferCreateAndGet(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyOffersSchema(t, pool, schema)

	s := mustNewOfferStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	in := testOffer(t, "seller-create", time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC))
	created, err := s.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.GameTitle != in.GameTitle || got.Platform != in.Platform || got.Condition != in.Condition {
		t.Fatalf("fetched offer mismatch: %+v", got)
	}
	if got.Price != in.Price || got.Description != in.Description || got.SellerID != in.SellerID {
		t.Fatalf("fetched offer mismatch: %+v", got)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("created_at mismatch: got %v want %v", got.CreatedAt, in.CreatedAt)
	}

	_, err = s.GetByID(ctx, mustNewULIDLike(t))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestPostgresStore_OfferListOrdering(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyOffersSchema(t, pool, schema)

	s := mustNewOfferStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	var wantNewest string
	for i := 0; i < 3; i++ {
		o := testOffer(t, "seller-list", base.Add(time.Duration(i)*time.Minute))
		if _, err := s.Create(ctx, o); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		wantNewest = o.ID
	}
	other := testOffer(t, "seller-other", base.Add(time.Hour))
	if _, err := s.Create(ctx, other); err != nil {
		t.Fatalf("create other seller: %v", err)
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 offers, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("not newest first: %v before %v", all[i-1].CreatedAt, all[i].CreatedAt)
		}
	}
	if all[0].ID != other.ID {
		t.Fatalf("newest offer not first: got %q want %q", all[0].ID, other.ID)
	}

	mine, err := s.ListBySeller(ctx, "seller-list")
	if err != nil {
		t.Fatalf("list by seller: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected 3 offers for seller-list, got %d", len(mine))
	}
	if mine[0].ID != wantNewest {
		t.Fatalf("seller listing out of order: got %q want %q first", mine[0].ID, wantNewest)
	}

	none, err := s.ListBySeller(ctx, "seller-none")
	if err != nil {
		t.Fatalf("list by absent seller: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty listing, got %d", len(none))
	}
}

func TestPostgresStore_OfferUpdateOwnership(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyOffersSchema(t, pool, schema)

	s := mustNewOfferStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	offer := testOffer(t, "seller-upd", time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC))
	if _, err := s.Create(ctx, offer); err != nil {
		t.Fatalf("create: %v", err)
	}

	// The seller is part of the row predicate, so a foreign seller never
	// matches.
	foreign := offer
	foreign.SellerID = "seller-else"
	foreign.Price = 1
	if err := s.Update(ctx, foreign); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign seller, got: %v", err)
	}

	offer.Price = 12.5
	offer.Description = "Price drop."
	if err := s.Update(ctx, offer); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetByID(ctx, offer.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Price != 12.5 || got.Description != "Price drop." {
		t.Fatalf("update not applied: %+v", got)
	}

	missing := testOffer(t, "seller-upd", time.Now().UTC())
	if err := s.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing offer, got: %v", err)
	}
}

func TestPostgresStore_OfferDeleteOwnership(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyOffersSchema(t, pool, schema)

	s := mustNewOfferStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	offer := testOffer(t, "seller-del", time.Date(2025, 7, 3, 9, 0, 0, 0, time.UTC))
	if _, err := s.Create(ctx, offer); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Delete(ctx, offer.ID, "seller-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign seller, got: %v", err)
	}
	if err := s.Delete(ctx, offer.ID, "seller-del"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetByID(ctx, offer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("offer still present: %v", err)
	}
	if err := s.Delete(ctx, offer.ID, "seller-del"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got: %v", err)
	}
}

// ---- helpers ----

func testOffer(t *testing.T, sellerID string, createdAt time.Time) Offer {
	t.Helper()
	return Offer{
		ID:          mustNewULIDLike(t),
		GameTitle:   "Hollow Knight",
		Platform:    "Switch",
		Condition:   "like new",
		Price:       19.99,
		Description: "Physical edition with map inserts.",
		SellerID:    sellerID,
		CreatedAt:   createdAt,
	}
}

func mustNewOfferStore(t *testing.T, pool *pgxpool.Pool, schema string) *PostgresStore {
	t.Helper()
	s, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("GAMESWAP_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: GAMESWAP_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse GAMESWAP_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (GAMESWAP_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := "gameswap_it_" + strings.ToLower(mustNewULIDLike(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgxIdent1(schema)); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgxIdent1(schema)+` CASCADE`)
}

func mustApplyOffersSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	offers := pgIdent(schema, "offers")

	schemaSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  game_title TEXT NOT NULL,
  platform TEXT NOT NULL,
  condition TEXT NOT NULL,
  price DOUBLE PRECISION NOT NULL,
  description TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,

  CONSTRAINT chk_offers_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT chk_offers_price_nonneg CHECK (price >= 0)
);
CREATE INDEX IF NOT EXISTS idx_offers_seller_id ON %s (seller_id);
CREATE INDEX IF NOT EXISTS idx_offers_created_at ON %s (created_at DESC);
`, offers, offers, offers)

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

func mustNewULIDLike(t *testing.T) string {
	t.Helper()

	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	return id
}

func pgxIdent1(ident string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection in dynamic DDL.
	return pgx.Identifier{ident}.Sanitize()
}
