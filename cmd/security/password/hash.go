package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash reports an encoded hash this package will not verify:
// malformed, a different algorithm, or parameters outside the bounds
// Verify is willing to spend resources on.
var ErrInvalidHash = errors.New("invalid password hash")

// phcPrefix pins the only algorithm and version this package emits.
// argon2.Version is 0x13, printed in decimal per the PHC string format.
const phcPrefix = "$argon2id$v=19$"

// Hash derives an Argon2id key from password and returns it encoded as
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>.
// The password must satisfy the configured policy.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		c.Params.Iterations,
		c.Params.MemoryKiB,
		c.Params.Parallelism,
		c.Params.KeyLength,
	)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf(
		"%sm=%d,t=%d,p=%d$%s$%s",
		phcPrefix,
		c.Params.MemoryKiB,
		c.Params.Iterations,
		c.Params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. A mismatch is
// (false, nil); ErrInvalidHash covers hashes Verify refuses to attempt.
// Stored hashes are treated as untrusted input: parameters far above
// the configured cost are rejected before any key derivation runs.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	params, salt, want, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	if !c.verifiable(params) {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey(
		[]byte(password),
		salt,
		params.Iterations,
		params.MemoryKiB,
		params.Parallelism,
		uint32(len(want)), // #nosec G115 -- verifiable() bounds the key length; safe conversion.
	)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// verifiable bounds the cost Verify will pay for a stored hash. Hashes
// from older, cheaper settings stay verifiable; anything far above the
// configured cost is refused.
func (c Config) verifiable(p Argon2idParams) bool {
	switch {
	case p.MemoryKiB > c.Params.MemoryKiB*2,
		p.Iterations > c.Params.Iterations*2,
		p.Parallelism > c.Params.Parallelism*2,
		p.SaltLength < 8 || p.SaltLength > 64,
		p.KeyLength < 16 || p.KeyLength > 128:
		return false
	}
	return true
}

// parsePHC splits a stored hash into its parameters, salt, and derived
// key. Exactly one cost field, one salt field, and one key field must
// follow the pinned prefix.
func parsePHC(encoded string) (Argon2idParams, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, phcPrefix)
	if !ok {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	costs, rest, ok := strings.Cut(rest, "$")
	if !ok {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	saltB64, keyB64, ok := strings.Cut(rest, "$")
	if !ok || strings.Contains(keyB64, "$") {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(costs, "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(saltB64)
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(keyB64)
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	params := Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  iter,
		Parallelism: uint8(par),      // bounded to <= 255 above
		SaltLength:  uint32(len(salt)), // #nosec G115 -- base64 input; verifiable() bounds it.
		KeyLength:   uint32(len(key)),  // #nosec G115 -- base64 input; verifiable() bounds it.
	}

	return params, salt, key, nil
}
