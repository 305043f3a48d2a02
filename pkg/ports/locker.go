package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// The engine uses it to guarantee that only one replica runs a given
// experiment at a time; within a process, runs are already serialized.
type DistributedLocker interface {
	// Lock attempts to acquire a distributed lock for the given key (e.g.,
	// an experiment name). It blocks until the lock is acquired or the
	// context is canceled; the TTL bounds how long a crashed holder can
	// block others. Returns an UnlockFunc that MUST be called to release
	// the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
