// Package token issues and validates Gameswap session tokens.
//
// Tokens are compact JWTs signed with HMAC-SHA256. Claims carry the subject
// (user id), issue time and expiry; there is no server-side session state
// and no revocation list. A token is valid until it expires.
//
// Security notes:
//   - The signing key must be at least MinKeyLen bytes; construction fails
//     otherwise.
//   - Validation verifies the signature and algorithm before trusting any
//     claim, including expiry.
//   - Every validation failure is reported as ErrInvalidToken.
package token
