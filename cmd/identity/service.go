package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gameswap/cmd/identity/ids"
	"gameswap/cmd/security/fieldcrypt"
	"gameswap/cmd/security/lookup"
	"gameswap/cmd/security/password"
)

// RegisterInput describes a registration request. All fields are plaintext;
// the Service protects them before anything is stored.
type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Password  string
	Email     string
	Now       time.Time
}

// Profile is the decrypted view of a user, exposed to the account owner only.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	Email     string
	CreatedAt time.Time
}

// Service performs account operations with injected crypto components.
// The store only ever receives protected values.
type Service struct {
	store  Store
	cipher *fieldcrypt.Cipher
	hasher *password.Pool

	// dummyHash keeps authentication timing flat when the email is unknown.
	dummyHash string
}

// NewService constructs a Service. All three collaborators are required.
func NewService(store Store, cipher *fieldcrypt.Cipher, hasher *password.Pool) (*Service, error) {
	if store == nil || cipher == nil || hasher == nil {
		return nil, OpError{Op: "identity.NewService", Kind: ErrInvalidInput, Msg: "nil collaborator"}
	}

	dummy, err := hasher.Config().Hash("gameswap-dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &Service{
		store:     store,
		cipher:    cipher,
		hasher:    hasher,
		dummyHash: dummy,
	}, nil
}

// Register encrypts the applicant's personal fields, hashes the password and
// inserts the account in one atomic step. A duplicate email surfaces as
// ConflictError{Field: "email"} straight from the store's unique constraint.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	const op = "identity.Register"

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)

	if firstName == "" || lastName == "" || username == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing required fields"}
	}

	passwordHash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return User{}, hashPolicyError(op, err)
	}

	encFirst, err := s.cipher.Encrypt(firstName)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	encLast, err := s.cipher.Encrypt(lastName)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	encEmail, err := s.cipher.Encrypt(email)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	return s.store.Create(ctx, CreateRecord{
		ID:                 id,
		EncryptedFirstName: encFirst,
		EncryptedLastName:  encLast,
		Username:           username,
		PasswordHash:       passwordHash,
		EncryptedEmail:     encEmail,
		EmailDigest:        lookup.Digest(email),
		CreatedAt:          now,
	})
}

// Authenticate resolves the account by email digest and verifies the
// password. Unknown email and wrong password both produce
// ErrInvalidCredentials; the unknown-email path still burns one hash
// verification so response timing does not reveal which case occurred.
func (s *Service) Authenticate(ctx context.Context, email, passwordPlain string) (User, error) {
	const op = "identity.Authenticate"

	u, err := s.store.GetByEmailDigest(ctx, lookup.Digest(email))
	if err != nil {
		if IsNotFound(err) {
			_, _ = s.hasher.Verify(ctx, s.dummyHash, passwordPlain)
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	ok, err := s.hasher.Verify(ctx, u.PasswordHash, passwordPlain)
	if err != nil {
		if errors.Is(err, password.ErrInvalidHash) {
			// Msg lands in internal logs only; the caller sees the same
			// rejection as a wrong password.
			return User{}, OpError{Op: op, Kind: ErrInvalidCredentials, Msg: "stored password hash unreadable"}
		}
		return User{}, err
	}
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// ChangeUsername replaces the username of an existing account.
func (s *Service) ChangeUsername(ctx context.Context, userID, username string) error {
	const op = "identity.ChangeUsername"

	username = strings.TrimSpace(username)
	if strings.TrimSpace(userID) == "" || username == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing user id or username"}
	}
	return s.store.UpdateUsername(ctx, userID, username)
}

// ChangePassword re-hashes the new password under a fresh salt and stores it.
func (s *Service) ChangePassword(ctx context.Context, userID, passwordPlain string) error {
	const op = "identity.ChangePassword"

	if strings.TrimSpace(userID) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing user id"}
	}

	hash, err := s.hasher.Hash(ctx, passwordPlain)
	if err != nil {
		return hashPolicyError(op, err)
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

// Profile returns the decrypted personal fields for userID.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	const op = "identity.Profile"

	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	firstName, err := s.cipher.Decrypt(u.EncryptedFirstName)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: first name: %w", op, err)
	}
	lastName, err := s.cipher.Decrypt(u.EncryptedLastName)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: last name: %w", op, err)
	}
	email, err := s.cipher.Decrypt(u.EncryptedEmail)
	if err != nil {
		return Profile{}, fmt.Errorf("%s: email: %w", op, err)
	}

	return Profile{
		ID:        u.ID,
		FirstName: firstName,
		LastName:  lastName,
		Username:  u.Username,
		Email:     email,
		CreatedAt: u.CreatedAt,
	}, nil
}

func hashPolicyError(op string, err error) error {
	switch {
	case errors.Is(err, password.ErrPasswordTooShort),
		errors.Is(err, password.ErrPasswordTooLong),
		errors.Is(err, password.ErrWeakPassword):
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	default:
		return err
	}
}
