// Package ratelimit gates outbound calls to external profile sources.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds the delay enforced between outbound calls.
type Config struct {
	MinDelay  time.Duration
	JitterMin time.Duration
	JitterMax time.Duration
}

// Jitter returns a random duration in [JitterMin, JitterMax].
func (c Config) Jitter() time.Duration {
	if c.JitterMax <= c.JitterMin {
		return max(c.JitterMin, 0)
	}

	return c.JitterMin + time.Duration(rand.Int64N(int64(c.JitterMax-c.JitterMin)+1))
}

// Limiter is a process-wide limiter: one clock gates every source.
// Callers are serialized, so concurrent requests queue behind each other.
type Limiter struct {
	cfg    Config
	logger *zap.Logger

	mu   sync.Mutex
	last time.Time
}

// New creates a new Limiter.
func New(cfg Config, logger *zap.Logger) *Limiter {
	return &Limiter{
		cfg:    cfg,
		logger: logger,
	}
}

// Wait blocks until MinDelay plus jitter has elapsed since the previous call,
// then records the current time as the last call. The first call never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		target := l.cfg.MinDelay + l.cfg.Jitter()
		if wait := target - time.Since(l.last); wait > 0 {
			l.logger.Debug("rate limiting outbound call", zap.Duration("wait", wait))

			if err := Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	l.last = time.Now()

	return nil
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
