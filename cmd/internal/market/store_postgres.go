package market

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists offers in PostgreSQL. The pgx pool is owned by the
// caller; this store must not close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "gameswap").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "gameswap"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}
	return st, nil
}

const offerColumns = `id, game_title, platform, condition, price, description, seller_id, created_at`

func (s *PostgresStore) Create(ctx context.Context, o Offer) (Offer, error) {
	if s == nil || s.pool == nil {
		return Offer{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Offer{}, err
	}
	if strings.TrimSpace(o.ID) == "" || strings.TrimSpace(o.SellerID) == "" {
		return Offer{}, ErrInvalidInput
	}

	offers := pgIdent(s.schema, "offers")

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+offers+` (`+offerColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID,
		o.GameTitle,
		o.Platform,
		o.Condition,
		o.Price,
		o.Description,
		o.SellerID,
		o.CreatedAt,
	)
	if err != nil {
		return Offer{}, err
	}
	return o, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Offer, error) {
	if s == nil || s.pool == nil {
		return Offer{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Offer{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Offer{}, ErrInvalidInput
	}

	offers := pgIdent(s.schema, "offers")

	var o Offer
	err := s.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM `+offers+` WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.GameTitle, &o.Platform, &o.Condition, &o.Price, &o.Description, &o.SellerID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offer{}, ErrNotFound
		}
		return Offer{}, err
	}
	return o, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Offer, error) {
	offers := pgIdent(s.schema, "offers")
	return s.queryOffers(ctx,
		`SELECT `+offerColumns+` FROM `+offers+`
		 ORDER BY created_at DESC, id DESC`)
}

func (s *PostgresStore) ListBySeller(ctx context.Context, sellerID string) ([]Offer, error) {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return nil, ErrInvalidInput
	}

	offers := pgIdent(s.schema, "offers")
	return s.queryOffers(ctx,
		`SELECT `+offerColumns+` FROM `+offers+`
		 WHERE seller_id = $1
		 ORDER BY created_at DESC, id DESC`, sellerID)
}

func (s *PostgresStore) Update(ctx context.Context, o Offer) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(o.ID) == "" || strings.TrimSpace(o.SellerID) == "" {
		return ErrInvalidInput
	}

	offers := pgIdent(s.schema, "offers")

	// Seller in the WHERE clause so the row cannot change hands between
	// the ownership check and the write.
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+offers+`
		 SET game_title = $3, platform = $4, condition = $5, price = $6, description = $7
		 WHERE id = $1 AND seller_id = $2`,
		o.ID,
		o.SellerID,
		o.GameTitle,
		o.Platform,
		o.Condition,
		o.Price,
		o.Description,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id, sellerID string) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	sellerID = strings.TrimSpace(sellerID)
	if id == "" || sellerID == "" {
		return ErrInvalidInput
	}

	offers := pgIdent(s.schema, "offers")

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+offers+` WHERE id = $1 AND seller_id = $2`,
		id, sellerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) queryOffers(ctx context.Context, sql string, args ...any) ([]Offer, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Offer
	for rows.Next() {
		var o Offer
		if err := rows.Scan(&o.ID, &o.GameTitle, &o.Platform, &o.Condition, &o.Price, &o.Description, &o.SellerID, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func pgIdent(schema, name string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection via schema/table names.
	return pgx.Identifier{schema, name}.Sanitize()
}
