package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrNotFound     = errors.New("not_found")
	ErrConflict     = errors.New("conflict")

	// ErrInvalidCredentials covers both unknown-account and wrong-password
	// failures. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid_credentials")
)
