package fieldcrypt

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretMissing  = errors.New("field encryption secret missing")
	ErrSecretTooShort = errors.New("field encryption secret too short")
	ErrEncrypt        = errors.New("field encryption failed")
	ErrDecrypt        = errors.New("field decryption failed")
)
