// Package lookup derives deterministic digests that make encrypted columns
// addressable by exact match.
//
// Digest is unsalted SHA-256 over the case-folded value: determinism across
// records is the point, so equality lookups work without decrypting anything.
// The flip side is that low-entropy values can be enumerated offline by
// anyone holding the digests; only index values where that risk is accepted.
package lookup
