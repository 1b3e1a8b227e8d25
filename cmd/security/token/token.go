package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// MinKeyLen is the minimum HMAC signing key length in bytes.
	MinKeyLen = 32

	// DefaultTTL is the token lifetime when none is configured.
	DefaultTTL = 24 * time.Hour
)

// Issuer mints and validates HMAC-SHA256 signed session tokens.
// It is safe for concurrent use.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithTTL overrides the token lifetime. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Tests use it to age tokens.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer returns an Issuer signing with key (trimmed). Keys shorter than
// MinKeyLen are rejected so that a weak or absent secret fails startup
// instead of shipping forgeable tokens.
func NewIssuer(key string, opts ...Option) (*Issuer, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrSigningKeyMissing
	}
	if len(key) < MinKeyLen {
		return nil, ErrSigningKeyTooShort
	}

	iss := &Issuer{
		key: []byte(key),
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, o := range opts {
		o(iss)
	}
	return iss, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a signed token for subject with sub/iat/exp claims,
// valid for the issuer's TTL.
func (i *Issuer) Issue(subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}

	now := i.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses raw, verifies signature then expiry, and returns the
// subject. Malformed input, bad signatures, wrong algorithms, expired
// tokens and missing subjects are all reported as ErrInvalidToken.
func (i *Issuer) Validate(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, i.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (i *Issuer) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return i.key, nil
}
