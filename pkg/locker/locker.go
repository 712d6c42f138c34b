// Package locker provides distributed locks shared by every service instance:
// the outbound rate-limit gate and the cache warmer both coordinate through it.
package locker

import (
	"context"
	"time"
)

// DistributedLocker provides distributed lock capabilities across multiple instances.
// Implementations must be safe for concurrent use.
//
// Two usage models exist in this service:
//   - cooldown: acquire with ttl = desired gap and never release (ratelimit.DistributedLimiter)
//   - mutual exclusion: acquire for the job interval, release on failure (job.WarmScheduler)
type DistributedLocker interface {
	// Acquire attempts to acquire a distributed lock with the given key.
	// Returns true if the lock was acquired, false if another instance holds it.
	// The lock will automatically expire after ttl if not released.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release releases the lock identified by key.
	// Returns an error if the lock doesn't exist or the release fails.
	// Safe to call even if this instance doesn't own the lock (no-op).
	Release(ctx context.Context, key string) error
}
