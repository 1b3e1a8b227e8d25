// Package identity implements Gameswap's account and credential foundation.
//
// It owns the encrypted user record (names and email are AEAD blobs, the
// email is addressable only through its lookup digest), the persistence
// boundary for that record, and the Service that performs registration,
// authentication and credential changes using injected crypto components.
//
// Plaintext never reaches the store and never appears in errors or logs.
package identity
