package identity

import (
	"context"
	"time"
)

// User is a stored account row. The name and email fields hold opaque AEAD
// blobs as produced by fieldcrypt; EmailDigest is the deterministic lookup
// key derived from the normalized email.
type User struct {
	ID                 string
	EncryptedFirstName string
	EncryptedLastName  string
	Username           string
	PasswordHash       string
	EncryptedEmail     string
	EmailDigest        string
	CreatedAt          time.Time
}

// CreateRecord is a normalized user insert payload. Protected fields arrive
// already encrypted/hashed; the store never sees plaintext.
type CreateRecord struct {
	ID                 string
	EncryptedFirstName string
	EncryptedLastName  string
	Username           string
	PasswordHash       string
	EncryptedEmail     string
	EmailDigest        string
	CreatedAt          time.Time
}

// Store is the persistence boundary for users.
//
// Uniqueness contract:
//   - EmailDigest is unique. Create performs a single insert and relies on
//     the store's own constraint to reject duplicates, reported as
//     ConflictError{Field: "email"}. There is no check-then-insert window.
type Store interface {
	Create(ctx context.Context, in CreateRecord) (User, error)
	GetByEmailDigest(ctx context.Context, digest string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	UpdateUsername(ctx context.Context, id string, username string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}
