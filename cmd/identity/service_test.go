package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"gameswap/cmd/security/fieldcrypt"
	"gameswap/cmd/security/lookup"
	"gameswap/cmd/security/password"
)

// Low-cost Argon2id parameters keep these tests fast. Production values
// come from password.DefaultConfig.
func fastServiceHasher() *password.Pool {
	cfg := password.Config{
		Params: password.Argon2idParams{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: password.Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
	return password.NewPool(cfg, 2)
}

func newTestService(t *testing.T) (*Service, *InMemoryStore) {
	t.Helper()

	key, err := fieldcrypt.KeyFromSecret("unit-test-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	cipher, err := fieldcrypt.New(key)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	store := NewInMemoryStore()
	svc, err := NewService(store, cipher, fastServiceHasher())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestService_RegisterAndAuthenticate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	created, err := svc.Register(ctx, RegisterInput{
		FirstName: "  Alice ",
		LastName:  "Liddell",
		Username:  "alice_l",
		Password:  "correct horse battery",
		Email:     " Alice@Example.COM ",
		Now:       now,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if created.ID == "" || len(created.ID) != 26 {
		t.Fatalf("unexpected id: %q", created.ID)
	}
	if created.Username != "alice_l" {
		t.Fatalf("username not trimmed: %q", created.Username)
	}
	if !created.CreatedAt.Equal(now) {
		t.Fatalf("created_at mismatch: %v", created.CreatedAt)
	}

	// The stored record must not carry any plaintext.
	if created.EncryptedFirstName == "Alice" || created.EncryptedLastName == "Liddell" {
		t.Fatalf("name stored in plaintext")
	}
	if created.EncryptedEmail == "alice@example.com" {
		t.Fatalf("email stored in plaintext")
	}
	if created.PasswordHash == "correct horse battery" {
		t.Fatalf("password stored in plaintext")
	}
	if created.EmailDigest != lookup.Digest("alice@example.com") {
		t.Fatalf("digest not case-folded: %q", created.EmailDigest)
	}

	// Login works with any casing of the address.
	got, err := svc.Authenticate(ctx, "ALICE@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("authenticated wrong user: %q", got.ID)
	}
}

func TestService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	base := RegisterInput{
		FirstName: "Bob",
		LastName:  "Stone",
		Username:  "bob",
		Password:  "long enough password",
		Email:     "bob@example.com",
	}

	missingFirst := base
	missingFirst.FirstName = "   "
	if _, err := svc.Register(ctx, missingFirst); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for blank first name, got: %v", err)
	}

	missingEmail := base
	missingEmail.Email = ""
	if _, err := svc.Register(ctx, missingEmail); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for blank email, got: %v", err)
	}

	shortPassword := base
	shortPassword.Password = "short"
	if _, err := svc.Register(ctx, shortPassword); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for short password, got: %v", err)
	}
}

func TestService_Register_DuplicateEmailAcrossCasings(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	first := RegisterInput{
		FirstName: "Cara",
		LastName:  "North",
		Username:  "cara",
		Password:  "first password here",
		Email:     "Cara@Example.com",
	}
	if _, err := svc.Register(ctx, first); err != nil {
		t.Fatalf("register: %v", err)
	}

	second := first
	second.Username = "cara_two"
	second.Email = "cara@example.COM"
	_, err := svc.Register(ctx, second)
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got: %v", err)
	}
	var ce ConflictError
	if !errors.As(err, &ce) || ce.Field != "email" {
		t.Fatalf("expected email conflict, got: %v", err)
	}
}

func TestService_Authenticate_UniformRejection(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{
		FirstName: "Dana",
		LastName:  "West",
		Username:  "dana",
		Password:  "the right password",
		Email:     "dana@example.com",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, errUnknown := svc.Authenticate(ctx, "nobody@example.com", "whatever password")
	_, errWrong := svc.Authenticate(ctx, "dana@example.com", "the wrong password")

	if !IsInvalidCredentials(errUnknown) {
		t.Fatalf("unknown email: expected invalid credentials, got: %v", errUnknown)
	}
	if !IsInvalidCredentials(errWrong) {
		t.Fatalf("wrong password: expected invalid credentials, got: %v", errWrong)
	}
	// The two failures must be indistinguishable to a caller.
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("rejections differ: %q vs %q", errUnknown, errWrong)
	}
	if IsNotFound(errUnknown) {
		t.Fatalf("unknown email must not leak as not found")
	}
}

func TestService_Authenticate_UnreadableStoredHash(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterInput{
		FirstName: "Eve",
		LastName:  "Moss",
		Username:  "eve",
		Password:  "a perfectly fine one",
		Email:     "eve@example.com",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := store.UpdatePassword(ctx, created.ID, "not-a-phc-record"); err != nil {
		t.Fatalf("corrupt hash: %v", err)
	}

	_, err = svc.Authenticate(ctx, "eve@example.com", "a perfectly fine one")
	if !IsInvalidCredentials(err) {
		t.Fatalf("expected invalid credentials, got: %v", err)
	}
	// Internally the failure keeps its cause for logs.
	var oe OpError
	if !errors.As(err, &oe) || oe.Msg == "" {
		t.Fatalf("expected annotated internal error, got: %v", err)
	}
}

func TestService_ChangeUsernameAndPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterInput{
		FirstName: "Finn",
		LastName:  "Reyes",
		Username:  "finn",
		Password:  "original password",
		Email:     "finn@example.com",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangeUsername(ctx, created.ID, "finn_renamed"); err != nil {
		t.Fatalf("change username: %v", err)
	}
	if err := svc.ChangePassword(ctx, created.ID, "replacement password"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "finn@example.com", "original password"); !IsInvalidCredentials(err) {
		t.Fatalf("old password still accepted: %v", err)
	}
	got, err := svc.Authenticate(ctx, "finn@example.com", "replacement password")
	if err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if got.Username != "finn_renamed" {
		t.Fatalf("username not updated: %q", got.Username)
	}

	if err := svc.ChangeUsername(ctx, created.ID, "   "); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got: %v", err)
	}
	if err := svc.ChangePassword(ctx, created.ID, "short"); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for short password, got: %v", err)
	}
	if err := svc.ChangeUsername(ctx, "01J00000000000000000000000", "ghost"); !IsNotFound(err) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestService_Profile(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterInput{
		FirstName: "Grace",
		LastName:  "Ocampo",
		Username:  "grace",
		Password:  "a password of note",
		Email:     "Grace@Example.com",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	p, err := svc.Profile(ctx, created.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.FirstName != "Grace" || p.LastName != "Ocampo" {
		t.Fatalf("decrypted names mismatch: %+v", p)
	}
	if p.Email != "grace@example.com" {
		t.Fatalf("decrypted email mismatch: %q", p.Email)
	}
	if p.Username != "grace" || p.ID != created.ID {
		t.Fatalf("profile identity mismatch: %+v", p)
	}

	if _, err := svc.Profile(ctx, "01J00000000000000000000000"); !IsNotFound(err) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewService(nil, nil, nil); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got: %v", err)
	}
}
