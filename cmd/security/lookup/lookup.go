package lookup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest returns the lowercase hex SHA-256 of the trimmed, lowercased value.
// Case variants of the same value produce identical digests.
func Digest(value string) string {
	folded := strings.ToLower(strings.TrimSpace(value))
	sum := sha256.Sum256([]byte(folded))
	return hex.EncodeToString(sum[:])
}
