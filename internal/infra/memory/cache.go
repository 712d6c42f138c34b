// Package memory provides the in-process profile cache.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"profile-service/internal/domain"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 10000

type entry struct {
	profile   *domain.Profile
	createdAt time.Time
}

// Cache implements domain.ProfileCache in memory.
// Entries expire on read once older than ttl; the least recently used entry
// is evicted when capacity is reached.
type Cache struct {
	entries *lru.Cache[string, entry]
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewCache creates a new in-memory cache.
func NewCache(capacity int, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	entries, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}

	return &Cache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Get returns a copy of the cached profile, or nil if absent or expired.
func (c *Cache) Get(_ context.Context, handle string) (*domain.Profile, error) {
	e, ok := c.entries.Get(handle)
	if !ok {
		return nil, nil
	}

	if age := c.now().Sub(e.createdAt); age >= c.ttl {
		c.logger.Debug("cache entry expired",
			zap.String("handle", handle),
			zap.Duration("age", age),
		)

		return nil, nil
	}

	return e.profile.Clone(), nil
}

// Put stores a copy of profile, replacing any existing entry.
func (c *Cache) Put(_ context.Context, handle string, profile *domain.Profile) error {
	evicted := c.entries.Add(handle, entry{
		profile:   profile.Clone(),
		createdAt: c.now(),
	})
	if evicted {
		c.logger.Debug("cache capacity reached, evicted least recently used entry")
	}

	return nil
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear(_ context.Context) (int, error) {
	n := c.entries.Len()
	c.entries.Purge()

	c.logger.Info("cache cleared", zap.Int("key_count", n))

	return n, nil
}

// Len returns the number of stored entries.
func (c *Cache) Len(_ context.Context) (int, error) {
	return c.entries.Len(), nil
}
