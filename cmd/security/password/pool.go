package password

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many Argon2id computations run at once so a burst of
// logins cannot monopolize the CPU and memory other requests need.
// Waiting for a slot respects ctx; a hash that has started always runs to
// completion (no mid-hash cancellation).
type Pool struct {
	cfg Config
	sem *semaphore.Weighted
}

// NewPool returns a Pool running at most maxConcurrent hashes at once.
// Values below 1 fall back to 1.
func NewPool(cfg Config, maxConcurrent int) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pool{cfg: cfg, sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Hash waits for a slot, then hashes password with the pool's Config.
func (p *Pool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer p.sem.Release(1)
	return p.cfg.Hash(password)
}

// Verify waits for a slot, then verifies password against encodedHash.
// Result semantics match Config.Verify.
func (p *Pool) Verify(ctx context.Context, encodedHash, password string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer p.sem.Release(1)
	return p.cfg.Verify(encodedHash, password)
}

// Config returns the pool's hashing configuration.
func (p *Pool) Config() Config { return p.cfg }
