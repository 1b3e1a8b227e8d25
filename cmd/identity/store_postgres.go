package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements user persistence over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
//   - Create is one INSERT; uq_users_email_digest is the only duplicate check.
//   - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "gameswap").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "gameswap",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// Create inserts the user row. A duplicate email digest is rejected by the
// store's unique constraint and reported as ConflictError{Field: "email"};
// there is no separate existence check.
func (s *PostgresStore) Create(ctx context.Context, in CreateRecord) (User, error) {
	const op = "identity.Create"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := validateCreateRecord(op, in); err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, encrypted_firstname, encrypted_lastname, username,
		     password_hash, encrypted_email, email_digest, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		in.ID,
		in.EncryptedFirstName,
		in.EncryptedLastName,
		in.Username,
		in.PasswordHash,
		in.EncryptedEmail,
		in.EmailDigest,
		in.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return User{
		ID:                 in.ID,
		EncryptedFirstName: in.EncryptedFirstName,
		EncryptedLastName:  in.EncryptedLastName,
		Username:           in.Username,
		PasswordHash:       in.PasswordHash,
		EncryptedEmail:     in.EncryptedEmail,
		EmailDigest:        in.EmailDigest,
		CreatedAt:          in.CreatedAt,
	}, nil
}

// GetByEmailDigest fetches a user by its email lookup digest.
func (s *PostgresStore) GetByEmailDigest(ctx context.Context, digest string) (User, error) {
	const op = "identity.GetByEmailDigest"

	digest = strings.TrimSpace(digest)
	if digest == "" {
		return User{}, pgInvalid(op, "missing digest")
	}
	return s.getBy(ctx, op, "email_digest", digest)
}

// GetByID fetches a user by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, pgInvalid(op, "missing id")
	}
	return s.getBy(ctx, op, "id", id)
}

func (s *PostgresStore) getBy(ctx context.Context, op, column, value string) (User, error) {
	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")
	col := pgx.Identifier{column}.Sanitize()
	var out User
	err := s.pool.QueryRow(ctx,
		`SELECT id, encrypted_firstname, encrypted_lastname, username,
		        password_hash, encrypted_email, email_digest, created_at
		   FROM `+users+`
		  WHERE `+col+` = $1`,
		value,
	).Scan(
		&out.ID,
		&out.EncryptedFirstName,
		&out.EncryptedLastName,
		&out.Username,
		&out.PasswordHash,
		&out.EncryptedEmail,
		&out.EmailDigest,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}
	return out, nil
}

// UpdateUsername replaces the username of an existing user.
func (s *PostgresStore) UpdateUsername(ctx context.Context, id string, username string) error {
	const op = "identity.UpdateUsername"
	return s.updateColumn(ctx, op, id, "username", username)
}

// UpdatePassword replaces the stored password hash of an existing user.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	const op = "identity.UpdatePassword"
	return s.updateColumn(ctx, op, id, "password_hash", passwordHash)
}

func (s *PostgresStore) updateColumn(ctx context.Context, op, id, column, value string) error {
	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(value) == "" {
		return pgInvalid(op, "missing id or value")
	}

	users := pgIdent(s.schema, "users")
	col := pgx.Identifier{column}.Sanitize()
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+users+` SET `+col+` = $2 WHERE id = $1`,
		id, value,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

func validateCreateRecord(op string, in CreateRecord) error {
	switch {
	case strings.TrimSpace(in.ID) == "":
		return pgInvalid(op, "missing id")
	case strings.TrimSpace(in.EncryptedFirstName) == "",
		strings.TrimSpace(in.EncryptedLastName) == "",
		strings.TrimSpace(in.EncryptedEmail) == "":
		return pgInvalid(op, "missing encrypted fields")
	case strings.TrimSpace(in.Username) == "":
		return pgInvalid(op, "missing username")
	case strings.TrimSpace(in.PasswordHash) == "":
		return pgInvalid(op, "missing password hash")
	case strings.TrimSpace(in.EmailDigest) == "":
		return pgInvalid(op, "missing email digest")
	case in.CreatedAt.IsZero():
		return pgInvalid(op, "missing created_at")
	default:
		return nil
	}
}

func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

func pgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_users_email_digest":
		return "email", true
	default:
		switch {
		case strings.Contains(c, "email"):
			return "email", true
		case strings.Contains(c, "username"):
			return "username", true
		default:
			return "unique", true
		}
	}
}
