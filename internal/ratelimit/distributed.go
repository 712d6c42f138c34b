package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"profile-service/pkg/locker"
)

// DefaultLockKey is the lock shared by every instance gating outbound calls.
const DefaultLockKey = "ratelimit:outbound"

// DistributedLimiter shares one outbound gate across instances.
// Each call takes a cooldown lock whose TTL is the delay; the lock is never
// released, so the next caller anywhere waits for it to expire.
type DistributedLimiter struct {
	cfg          Config
	locker       locker.DistributedLocker
	key          string
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewDistributed creates a DistributedLimiter polling every pollInterval while the gate is held.
func NewDistributed(cfg Config, l locker.DistributedLocker, pollInterval time.Duration, logger *zap.Logger) *DistributedLimiter {
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}

	return &DistributedLimiter{
		cfg:          cfg,
		locker:       l,
		key:          DefaultLockKey,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Wait blocks until this instance holds the outbound gate.
func (d *DistributedLimiter) Wait(ctx context.Context) error {
	ttl := d.cfg.MinDelay + d.cfg.Jitter()
	if ttl < time.Millisecond {
		return ctx.Err()
	}

	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		acquired, err := d.locker.Acquire(ctx, d.key, ttl)
		if err != nil {
			return fmt.Errorf("acquiring outbound slot: %w", err)
		}
		if acquired {
			if waited := time.Since(start); waited > d.pollInterval {
				d.logger.Debug("rate limited outbound call", zap.Duration("waited", waited))
			}

			return nil
		}

		if err := Sleep(ctx, d.pollInterval); err != nil {
			return err
		}
	}
}
