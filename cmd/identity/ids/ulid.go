// Package ids mints the ULIDs gameswap uses as primary keys for
// accounts and offers. ULIDs sort lexicographically by creation time,
// so "newest first" listings order on the id column alone.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// entropy is shared by every minted ID. The monotonic reader keeps IDs
// strictly increasing within a single millisecond.
var entropy = &ulid.LockedMonotonicReader{
	MonotonicReader: ulid.Monotonic(rand.Reader, 0),
}

// NewULID mints a 26-character ULID for the given timestamp. A zero
// timestamp means now.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
