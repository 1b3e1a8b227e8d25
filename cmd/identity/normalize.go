package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization. The normalized
// form is what gets encrypted and what the lookup digest is computed over,
// so case variants of one address always collide on the same digest.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
