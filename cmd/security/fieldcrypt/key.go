package fieldcrypt

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the derived key size in bytes (ChaCha20-Poly1305, 256-bit).
	KeySize = chacha20poly1305.KeySize

	// MinSecretLen is the minimum accepted master secret length in bytes.
	MinSecretLen = 16
)

// HKDF labels bind derived keys to this use. Changing either invalidates
// every stored ciphertext.
const (
	kdfSalt = "gameswap-field-encryption"
	kdfInfo = "identity-fields-v1"
)

// Key is a derived 256-bit field encryption key.
type Key [KeySize]byte

// KeyFromSecret derives the field encryption key from the configured master
// secret using HKDF-SHA256. Short or missing secrets are rejected so that
// startup fails instead of encrypting under a weak key.
func KeyFromSecret(secret string) (Key, error) {
	var k Key

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return k, ErrSecretMissing
	}
	if len(secret) < MinSecretLen {
		return k, ErrSecretTooShort
	}

	r := hkdf.New(sha256.New, []byte(secret), []byte(kdfSalt), []byte(kdfInfo))
	if _, err := io.ReadFull(r, k[:]); err != nil {
		return k, fmt.Errorf("derive key: %w", err)
	}
	return k, nil
}
