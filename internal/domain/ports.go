package domain

import (
	"context"
)

// ProfileCache maps normalized handles to profiles with time-based expiry.
// Implementations: internal/infra/memory/cache.go, internal/infra/redis/cache.go
type ProfileCache interface {
	// Get returns the cached profile, or nil if absent or older than the cache TTL.
	// Expired entries are not deleted, only ignored.
	Get(ctx context.Context, handle string) (*Profile, error)

	// Put overwrites any entry for handle with profile stamped at the current time.
	Put(ctx context.Context, handle string, profile *Profile) error

	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)

	// Len returns the number of stored entries, expired ones included.
	Len(ctx context.Context) (int, error)
}

// RateLimiter gates outbound calls to external sources.
// Implementations: internal/ratelimit/
type RateLimiter interface {
	// Wait blocks until the minimum inter-call delay has elapsed, then records the call.
	Wait(ctx context.Context) error
}

// SnapshotRepository persists the last successfully fetched profile per handle.
// Implementations: internal/infra/postgres/repository.go
type SnapshotRepository interface {
	// Save upserts the snapshot stored under handle.
	Save(ctx context.Context, handle string, profile *Profile) error

	// GetLatest returns the stored snapshot, or nil if none exists.
	GetLatest(ctx context.Context, handle string) (*Profile, error)

	// FetchCount returns how many times handle has been saved, 0 if never.
	FetchCount(ctx context.Context, handle string) (int64, error)

	// Count returns the number of stored snapshots.
	Count(ctx context.Context) (int64, error)
}
