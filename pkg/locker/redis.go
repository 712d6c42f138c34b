package locker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces every lock key in Redis.
const DefaultKeyPrefix = "profile-service:lock:"

// Option configures a RedisLocker.
type Option func(*RedisLocker)

// WithKeyPrefix overrides DefaultKeyPrefix. An empty prefix uses keys as given.
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisLocker) {
		r.prefix = prefix
	}
}

// RedisLocker implements DistributedLocker on top of Redsync (Redlock).
// Mutexes it acquired are remembered so Release only ever unlocks its own.
type RedisLocker struct {
	rs     *redsync.Redsync
	logger *zap.Logger
	prefix string

	mu    sync.Mutex
	owned map[string]*redsync.Mutex
}

// NewRedisLocker creates a new Redis-based distributed locker.
func NewRedisLocker(client *redis.Client, logger *zap.Logger, opts ...Option) *RedisLocker {
	r := &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		logger: logger,
		prefix: DefaultKeyPrefix,
		owned:  make(map[string]*redsync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Acquire makes a single non-blocking attempt to take the lock.
// Returns false (not an error) when another holder owns it.
func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	mutex := r.rs.NewMutex(
		r.prefix+key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isContention(err) {
			r.logger.Debug("lock held elsewhere", zap.String("key", key))

			return false, nil
		}

		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}

	r.mu.Lock()
	r.owned[key] = mutex
	r.mu.Unlock()

	r.logger.Debug("lock acquired",
		zap.String("key", key),
		zap.Duration("ttl", ttl),
	)

	return true, nil
}

// Release unlocks key if this instance holds it; otherwise it is a no-op.
func (r *RedisLocker) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	mutex, ok := r.owned[key]
	delete(r.owned, key)
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("release skipped, lock not owned", zap.String("key", key))

		return nil
	}

	released, err := mutex.UnlockContext(ctx)
	if err != nil {
		if errors.Is(err, redsync.ErrLockAlreadyExpired) {
			r.logger.Debug("lock expired before release", zap.String("key", key))

			return nil
		}

		return fmt.Errorf("release lock %s: %w", key, err)
	}

	r.logger.Debug("lock released",
		zap.String("key", key),
		zap.Bool("was_held", released),
	)

	return nil
}

// isContention reports whether err means another holder owns the lock.
// Redsync reports it as ErrFailed or as "lock already taken, locked nodes: [...]".
func isContention(err error) bool {
	return errors.Is(err, redsync.ErrFailed) || strings.Contains(err.Error(), "lock already taken")
}
