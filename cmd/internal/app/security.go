package app

import (
	"fmt"
	"strings"

	"gameswap/cmd/security/fieldcrypt"
	"gameswap/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Fail-fast is the point: a server that silently runs without an encryption
// secret would store recovery emails in the clear, and one without a signing
// secret would mint unverifiable tokens. Length floors mirror the modules
// that consume the secrets (security/fieldcrypt, security/token).
func ValidateSecurityConfig(cfg Config) error {
	enc := strings.TrimSpace(cfg.EncryptionSecret)
	if enc == "" {
		return fmt.Errorf("security policy: GAMESWAP_ENCRYPTION_SECRET is required")
	}
	if len(enc) < fieldcrypt.MinSecretLen {
		return fmt.Errorf("security policy: GAMESWAP_ENCRYPTION_SECRET is too short (min %d bytes)", fieldcrypt.MinSecretLen)
	}

	sign := strings.TrimSpace(cfg.TokenSigningSecret)
	if sign == "" {
		return fmt.Errorf("security policy: GAMESWAP_TOKEN_SECRET is required")
	}
	if len(sign) < token.MinKeyLen {
		return fmt.Errorf("security policy: GAMESWAP_TOKEN_SECRET is too short (min %d bytes)", token.MinKeyLen)
	}

	return nil
}
