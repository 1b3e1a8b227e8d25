package identity

import (
	"context"
	"strings"
	"sync"
)

// InMemoryStore is a dev/test fallback when no database is configured.
// It enforces the same email-digest uniqueness contract as the Postgres
// store and reports violations with the same error types.
type InMemoryStore struct {
	mu       sync.Mutex
	byID     map[string]User
	byDigest map[string]string // email_digest -> user id
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[string]User),
		byDigest: make(map[string]string),
	}
}

// Create inserts the user row, rejecting duplicate email digests atomically
// under the store lock.
func (s *InMemoryStore) Create(ctx context.Context, in CreateRecord) (User, error) {
	const op = "identity.Create"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if err := validateCreateRecord(op, in); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byDigest[in.EmailDigest]; exists {
		return User{}, ConflictError{Op: op, Field: "email"}
	}
	if _, exists := s.byID[in.ID]; exists {
		return User{}, ConflictError{Op: op, Field: "unique"}
	}

	u := User{
		ID:                 in.ID,
		EncryptedFirstName: in.EncryptedFirstName,
		EncryptedLastName:  in.EncryptedLastName,
		Username:           in.Username,
		PasswordHash:       in.PasswordHash,
		EncryptedEmail:     in.EncryptedEmail,
		EmailDigest:        in.EmailDigest,
		CreatedAt:          in.CreatedAt,
	}
	s.byID[u.ID] = u
	s.byDigest[u.EmailDigest] = u.ID
	return u, nil
}

// GetByEmailDigest fetches a user by its email lookup digest.
func (s *InMemoryStore) GetByEmailDigest(ctx context.Context, digest string) (User, error) {
	const op = "identity.GetByEmailDigest"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return User{}, pgInvalid(op, "missing digest")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byDigest[digest]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return s.byID[id], nil
}

// GetByID fetches a user by id.
func (s *InMemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, pgInvalid(op, "missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return u, nil
}

// UpdateUsername replaces the username of an existing user.
func (s *InMemoryStore) UpdateUsername(ctx context.Context, id string, username string) error {
	const op = "identity.UpdateUsername"
	return s.update(ctx, op, id, username, func(u *User, v string) { u.Username = v })
}

// UpdatePassword replaces the stored password hash of an existing user.
func (s *InMemoryStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	const op = "identity.UpdatePassword"
	return s.update(ctx, op, id, passwordHash, func(u *User, v string) { u.PasswordHash = v })
}

func (s *InMemoryStore) update(ctx context.Context, op, id, value string, apply func(*User, string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(value) == "" {
		return pgInvalid(op, "missing id or value")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	apply(&u, value)
	s.byID[id] = u
	return nil
}
