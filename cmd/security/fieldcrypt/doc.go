// Package fieldcrypt encrypts individual identity fields at rest for Gameswap.
//
// It derives a 256-bit key from the configured master secret via HKDF-SHA256
// and seals values with ChaCha20-Poly1305 under a fresh random nonce per call.
// The stored form is base64(nonce || ciphertext || tag): self-contained,
// opaque, and non-deterministic (equal plaintexts encrypt to different blobs).
//
// Security notes:
//   - The master secret must be at least 16 bytes; construction fails otherwise.
//   - Decrypt treats its input as untrusted and reports every failure as
//     ErrDecrypt, without distinguishing the cause.
package fieldcrypt
