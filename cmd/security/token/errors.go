package token

import "errors"

// Public, stable errors for callers.
var (
	ErrSigningKeyMissing  = errors.New("token signing key missing")
	ErrSigningKeyTooShort = errors.New("token signing key too short")
	ErrInvalidToken       = errors.New("invalid token")
)
