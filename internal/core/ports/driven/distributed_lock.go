package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across callback instances: one callback per
// browser scope at a time, and one sweeper run across all instances.
type DistributedLock interface {
	// Acquire attempts to take a named lock for at most ttl.
	// Returns false without error when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up a named lock. Safe to call when the lock is not held.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
