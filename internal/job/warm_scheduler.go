// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"profile-service/internal/domain"
	"profile-service/pkg/locker"
)

// LockKey is the distributed lock guarding a warm cycle.
const LockKey = "warmer:lock"

// Refresher refetches a handle and stores the result.
// Implemented by service.ProfileService.
type Refresher interface {
	Refresh(ctx context.Context, handle string) (*domain.Profile, error)
}

// WarmConfig holds cache warmer configuration.
type WarmConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	Handles  []string
}

// WarmScheduler periodically refreshes a fixed list of handles so popular
// profiles are served from the cache. With a locker, only one instance warms
// per interval.
type WarmScheduler struct {
	refresher Refresher
	cfg       WarmConfig
	logger    *zap.Logger
	locker    locker.DistributedLocker // nil runs every cycle locally

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWarmScheduler creates a new WarmScheduler. l may be nil.
func NewWarmScheduler(
	refresher Refresher,
	cfg WarmConfig,
	logger *zap.Logger,
	l locker.DistributedLocker,
) *WarmScheduler {
	return &WarmScheduler{
		refresher: refresher,
		cfg:       cfg,
		logger:    logger,
		locker:    l,
	}
}

// Start begins the background warm job.
func (s *WarmScheduler) Start(runOnStartup bool) {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting cache warmer",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("handles", len(s.cfg.Handles)),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(runOnStartup)
}

// Stop gracefully stops the scheduler and waits for a running cycle.
func (s *WarmScheduler) Stop() {
	s.logger.Info("stopping cache warmer")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("cache warmer stopped")
}

func (s *WarmScheduler) run(runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		s.RunOnce(s.ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}

// RunOnce performs one warm cycle and returns how many handles were refreshed.
//
// Locking behavior:
//   - Lock TTL = interval (cooldown model)
//   - All refreshed: lock held for the full interval
//   - Any failure: lock released so another instance may retry
func (s *WarmScheduler) RunOnce(parent context.Context) int {
	if s.locker != nil {
		acquired, err := s.locker.Acquire(parent, LockKey, s.cfg.Interval)
		if err != nil {
			s.logger.Error("failed to acquire distributed lock", zap.Error(err))

			return 0
		}
		if !acquired {
			s.logger.Debug("another instance is warming the cache, skipping")

			return 0
		}
	}

	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	refreshed, failed := 0, 0
	for _, handle := range s.cfg.Handles {
		if ctx.Err() != nil {
			s.logger.Warn("warm cycle timed out", zap.Int("remaining", len(s.cfg.Handles)-refreshed-failed))

			break
		}

		if _, err := s.refresher.Refresh(ctx, handle); err != nil {
			failed++
			s.logger.Warn("warm refresh failed",
				zap.String("handle", handle),
				zap.Error(err),
			)

			continue
		}
		refreshed++
	}

	if s.locker != nil && (failed > 0 || refreshed < len(s.cfg.Handles)) {
		if err := s.locker.Release(parent, LockKey); err != nil {
			s.logger.Error("failed to release lock after warm errors", zap.Error(err))
		}
	}

	s.logger.Info("warm cycle completed",
		zap.Int("refreshed", refreshed),
		zap.Int("failed", failed),
	)

	return refreshed
}
