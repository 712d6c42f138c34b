// Package service provides application use cases.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"profile-service/internal/domain"
	"profile-service/internal/ratelimit"
)

// LookupResult is a resolved profile and whether it came from the cache.
type LookupResult struct {
	Profile *domain.Profile
	Cached  bool
}

// SnapshotRecord is a persisted profile and how many times it was saved.
type SnapshotRecord struct {
	Profile    *domain.Profile
	FetchCount int64
}

// ProbeResult reports one source's outcome during a diagnostic probe.
type ProbeResult struct {
	Source          string
	Success         bool
	ErrorKind       domain.ErrorKind
	Error           string
	FieldsExtracted int
	Duration        time.Duration
}

// Config holds profile service settings.
type Config struct {
	// FallbackPause is slept between a failed source and the next one.
	FallbackPause time.Duration
}

// ProfileService resolves handles to profiles: cache first, then sources in
// priority order behind the outbound rate limiter.
type ProfileService struct {
	cache      domain.ProfileCache
	limiter    domain.RateLimiter
	sources    []domain.Source
	normalizer *domain.Normalizer
	snapshots  domain.SnapshotRepository
	cfg        Config
	logger     *zap.Logger
}

// NewProfileService creates a new ProfileService.
// snapshots may be nil when no snapshot store is configured.
func NewProfileService(
	cache domain.ProfileCache,
	limiter domain.RateLimiter,
	sources []domain.Source,
	snapshots domain.SnapshotRepository,
	cfg Config,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		cache:      cache,
		limiter:    limiter,
		sources:    sources,
		normalizer: domain.NewNormalizer(),
		snapshots:  snapshots,
		cfg:        cfg,
		logger:     logger,
	}
}

// Lookup resolves a raw handle. A cache hit skips the limiter and all sources.
// Failures are never cached.
func (s *ProfileService) Lookup(ctx context.Context, raw string) (*LookupResult, error) {
	handle, err := parseHandle(raw)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, handle)
	if err != nil {
		s.logger.Warn("cache read failed, fetching from sources",
			zap.String("handle", handle),
			zap.Error(err),
		)
	}
	if cached != nil {
		s.logger.Debug("serving cached profile", zap.String("handle", handle))

		return &LookupResult{Profile: cached, Cached: true}, nil
	}

	profile, err := s.fetch(ctx, handle)
	if err != nil {
		return nil, err
	}

	s.store(ctx, handle, profile)

	return &LookupResult{Profile: profile, Cached: false}, nil
}

// Refresh fetches handle from the sources regardless of the cache and stores the result.
func (s *ProfileService) Refresh(ctx context.Context, raw string) (*domain.Profile, error) {
	handle, err := parseHandle(raw)
	if err != nil {
		return nil, err
	}

	profile, err := s.fetch(ctx, handle)
	if err != nil {
		return nil, err
	}

	s.store(ctx, handle, profile)

	return profile, nil
}

// Probe runs every source independently for handle, bypassing the cache.
// The limiter gates each source call.
func (s *ProfileService) Probe(ctx context.Context, raw string) ([]ProbeResult, error) {
	handle, err := parseHandle(raw)
	if err != nil {
		return nil, err
	}

	results := make([]ProbeResult, 0, len(s.sources))
	for _, src := range s.sources {
		if err := s.limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		start := time.Now()
		result := ProbeResult{Source: src.Name()}

		payload, err := s.callSource(ctx, src, handle)
		if err != nil {
			se := asSourceError(src.Name(), err)
			result.ErrorKind = se.Kind
			result.Error = se.Error()
		} else if _, matched := s.normalizer.NormalizeDetailed(payload, handle, src.Name()); matched > 0 {
			result.Success = true
			result.FieldsExtracted = matched
		} else {
			result.ErrorKind = domain.KindUnparseableResponse
			result.Error = "payload has no recognizable profile"
		}
		result.Duration = time.Since(start)

		s.logger.Info("probed source",
			zap.String("source", result.Source),
			zap.String("handle", handle),
			zap.Bool("success", result.Success),
			zap.Duration("duration", result.Duration),
		)

		results = append(results, result)
	}

	return results, nil
}

// Snapshot returns the last persisted profile for handle.
func (s *ProfileService) Snapshot(ctx context.Context, raw string) (*SnapshotRecord, error) {
	if s.snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}

	handle, err := parseHandle(raw)
	if err != nil {
		return nil, err
	}

	profile, err := s.snapshots.GetLatest(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if profile == nil {
		return nil, ErrSnapshotNotFound
	}

	fetches, err := s.snapshots.FetchCount(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("reading fetch count: %w", err)
	}

	return &SnapshotRecord{Profile: profile, FetchCount: fetches}, nil
}

// SnapshotsEnabled reports whether a snapshot store is configured.
func (s *ProfileService) SnapshotsEnabled() bool {
	return s.snapshots != nil
}

// SnapshotCount returns the number of persisted handles, 0 when snapshots are disabled.
func (s *ProfileService) SnapshotCount(ctx context.Context) (int64, error) {
	if s.snapshots == nil {
		return 0, nil
	}

	n, err := s.snapshots.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting snapshots: %w", err)
	}

	return n, nil
}

// ClearCache empties the cache and returns how many entries were removed.
func (s *ProfileService) ClearCache(ctx context.Context) (int, error) {
	n, err := s.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}

	s.logger.Info("cache cleared by request", zap.Int("removed", n))

	return n, nil
}

// CacheSize returns the number of cached entries.
func (s *ProfileService) CacheSize(ctx context.Context) (int, error) {
	return s.cache.Len(ctx)
}

// SourceNames returns the configured source names in priority order.
func (s *ProfileService) SourceNames() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}

	return names
}

// fetch takes one limiter slot, then tries sources in order until one succeeds.
// A payload that does not normalize stops the chain.
func (s *ProfileService) fetch(ctx context.Context, handle string) (*domain.Profile, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	attempts := make([]*domain.SourceError, 0, len(s.sources))
	for i, src := range s.sources {
		if i > 0 {
			if err := ratelimit.Sleep(ctx, s.cfg.FallbackPause); err != nil {
				return nil, fmt.Errorf("lookup of %q interrupted: %w", handle, err)
			}
		}

		start := time.Now()
		payload, err := s.callSource(ctx, src, handle)
		if err != nil {
			se := asSourceError(src.Name(), err)
			attempts = append(attempts, se)
			s.logger.Warn("source failed, trying next",
				zap.String("source", src.Name()),
				zap.String("handle", handle),
				zap.String("kind", string(se.Kind)),
				zap.String("message", se.Message),
				zap.Duration("duration", time.Since(start)),
			)

			continue
		}

		profile, ok := s.normalizer.Normalize(payload, handle, src.Name())
		if !ok {
			s.logger.Error("source payload not normalizable",
				zap.String("source", src.Name()),
				zap.String("handle", handle),
			)

			return nil, &NormalizationError{Source: src.Name(), Raw: payload}
		}

		s.logger.Info("profile fetched",
			zap.String("source", src.Name()),
			zap.String("handle", handle),
			zap.Int("failed_before", len(attempts)),
			zap.Duration("duration", time.Since(start)),
		)

		return profile, nil
	}

	return nil, &ExhaustedError{Handle: handle, Attempts: attempts}
}

// callSource invokes src, turning a panic into an api_error failure.
func (s *ProfileService) callSource(ctx context.Context, src domain.Source, handle string) (payload domain.RawPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("source panicked",
				zap.String("source", src.Name()),
				zap.String("handle", handle),
				zap.Any("panic", r),
			)
			payload = nil
			err = domain.NewSourceError(src.Name(), domain.KindAPIError, "source panicked: %v", r)
		}
	}()

	return src.Fetch(ctx, handle)
}

// store writes a fresh profile to the cache and snapshot store.
// Failures are logged only; the caller still gets the profile.
func (s *ProfileService) store(ctx context.Context, handle string, profile *domain.Profile) {
	if err := s.cache.Put(ctx, handle, profile); err != nil {
		s.logger.Warn("cache write failed", zap.String("handle", handle), zap.Error(err))
	}

	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, handle, profile); err != nil {
		s.logger.Warn("snapshot save failed", zap.String("handle", handle), zap.Error(err))
	}
}

func parseHandle(raw string) (string, error) {
	handle := domain.NormalizeHandle(raw)
	if err := domain.ValidateHandle(handle); err != nil {
		return "", fmt.Errorf("%w: %q", err, raw)
	}

	return handle, nil
}

func asSourceError(name string, err error) *domain.SourceError {
	var se *domain.SourceError
	if errors.As(err, &se) {
		return se
	}

	return domain.NewSourceError(name, domain.KindAPIError, "%v", err)
}
