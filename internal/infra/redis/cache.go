package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"profile-service/internal/domain"
)

// Cache implements domain.ProfileCache using Redis, so every instance sees
// the same entries. Keys are namespaced with keyPrefix.
type Cache struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// envelope is the stored value. created_at drives read-time expiry; the Redis
// TTL only reclaims memory.
type envelope struct {
	Profile   *domain.Profile `json:"profile"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewCache creates a new Redis cache instance.
func NewCache(client *redis.Client, logger *zap.Logger, keyPrefix string, ttl time.Duration) *Cache {
	return &Cache{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Get returns the cached profile, or nil if absent or expired.
func (c *Cache) Get(ctx context.Context, handle string) (*domain.Profile, error) {
	data, err := c.client.Get(ctx, c.buildKey(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		c.logger.Error("cache get failed",
			zap.String("handle", handle),
			zap.Error(err),
		)

		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Profile == nil {
		// unreadable entries are treated as misses and overwritten on the next put
		c.logger.Warn("cache entry unreadable",
			zap.String("handle", handle),
			zap.Error(err),
		)

		return nil, nil
	}

	if age := c.now().Sub(env.CreatedAt); age >= c.ttl {
		c.logger.Debug("cache entry expired",
			zap.String("handle", handle),
			zap.Duration("age", age),
		)

		return nil, nil
	}

	c.logger.Debug("cache hit",
		zap.String("handle", handle),
		zap.Int("bytes", len(data)),
	)

	return env.Profile, nil
}

// Put stores profile under handle, replacing any existing entry.
func (c *Cache) Put(ctx context.Context, handle string, profile *domain.Profile) error {
	data, err := json.Marshal(envelope{Profile: profile, CreatedAt: c.now().UTC()})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(handle), data, c.ttl).Err(); err != nil {
		c.logger.Error("cache set failed",
			zap.String("handle", handle),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)

		return err
	}

	c.logger.Debug("cache set",
		zap.String("handle", handle),
		zap.Int("bytes", len(data)),
		zap.Duration("ttl", c.ttl),
	)

	return nil
}

// Clear removes all cached profiles matching the keyPrefix and returns how
// many were removed. Uses SCAN so large keyspaces do not block Redis.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		c.logger.Error("cache clear scan failed", zap.Error(err))

		return 0, err
	}

	if len(keys) == 0 {
		c.logger.Debug("cache clear: no keys found")

		return 0, nil
	}

	deleted, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		c.logger.Error("cache clear delete failed",
			zap.Int("key_count", len(keys)),
			zap.Error(err),
		)

		return 0, err
	}

	c.logger.Info("cache cleared", zap.Int64("key_count", deleted))

	return int(deleted), nil
}

// Len returns the number of stored profiles.
func (c *Cache) Len(ctx context.Context) (int, error) {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return 0, err
	}

	return len(keys), nil
}

func (c *Cache) scanKeys(ctx context.Context) ([]string, error) {
	iter := c.client.Scan(ctx, 0, c.buildKey("*"), 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	return keys, iter.Err()
}

func (c *Cache) buildKey(handle string) string {
	return c.keyPrefix + ":profile:" + handle
}
