package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"profile-service/internal/domain"
	"profile-service/internal/infra/memory"
)

type fakeSource struct {
	name    string
	payload domain.RawPayload
	err     error
	panics  bool

	mu      sync.Mutex
	calls   int
	handles []string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, handle string) (domain.RawPayload, error) {
	f.mu.Lock()
	f.calls++
	f.handles = append(f.handles, handle)
	f.mu.Unlock()

	if f.panics {
		panic("boom")
	}

	return f.payload, f.err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func failing(name string, kind domain.ErrorKind) *fakeSource {
	return &fakeSource{name: name, err: domain.NewSourceError(name, kind, "failed")}
}

func succeeding(name string, followers int) *fakeSource {
	return &fakeSource{name: name, payload: domain.RawPayload{
		"user": map[string]any{"username": "nasa", "follower_count": followers},
	}}
}

type countingLimiter struct {
	mu    sync.Mutex
	waits int
	err   error
}

func (l *countingLimiter) Wait(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waits++

	return l.err
}

type fakeSnapshots struct {
	mu       sync.Mutex
	saved    map[string]*domain.Profile
	fetches  map[string]int64
	saveErr  error
	countErr error
}

func (f *fakeSnapshots) Save(_ context.Context, handle string, p *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = map[string]*domain.Profile{}
		f.fetches = map[string]int64{}
	}
	f.saved[handle] = p.Clone()
	f.fetches[handle]++

	return nil
}

func (f *fakeSnapshots) GetLatest(_ context.Context, handle string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.saved[handle].Clone(), nil
}

func (f *fakeSnapshots) FetchCount(_ context.Context, handle string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetches[handle], nil
}

func (f *fakeSnapshots) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}

	return int64(len(f.saved)), nil
}

func newTestService(t *testing.T, limiter domain.RateLimiter, snapshots domain.SnapshotRepository, sources ...domain.Source) *ProfileService {
	t.Helper()

	cache, err := memory.NewCache(100, time.Hour, zap.NewNop())
	require.NoError(t, err)

	return NewProfileService(cache, limiter, sources, snapshots, Config{}, zap.NewNop())
}

func TestLookup_FirstSuccessWins(t *testing.T) {
	limiter := &countingLimiter{}
	a := failing("a", domain.KindRateLimited)
	b := succeeding("b", 42)
	c := succeeding("c", 7)
	svc := newTestService(t, limiter, nil, a, b, c)

	res, err := svc.Lookup(context.Background(), " @NASA ")
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Equal(t, "nasa", res.Profile.Username)
	assert.Equal(t, "b", res.Profile.Source)
	assert.Equal(t, int64(42), res.Profile.Followers)
	assert.Equal(t, 1, a.callCount())
	assert.Equal(t, 1, b.callCount())
	assert.Zero(t, c.callCount(), "sources after the winner must not be invoked")
	assert.Equal(t, 1, limiter.waits, "limiter runs once per cache miss")
	assert.Equal(t, []string{"nasa"}, a.handles, "sources receive the normalized handle")
}

func TestLookup_CacheHitSkipsLimiterAndSources(t *testing.T) {
	limiter := &countingLimiter{}
	src := succeeding("mock", 1)
	svc := newTestService(t, limiter, nil, src)
	ctx := context.Background()

	first, err := svc.Lookup(ctx, "nasa")
	require.NoError(t, err)
	second, err := svc.Lookup(ctx, "@Nasa")
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Profile, second.Profile)
	assert.Equal(t, 1, src.callCount())
	assert.Equal(t, 1, limiter.waits)
}

func TestLookup_InvalidHandle(t *testing.T) {
	limiter := &countingLimiter{}
	src := succeeding("mock", 1)
	svc := newTestService(t, limiter, nil, src)

	for _, raw := range []string{"", "   ", "@", "bad handle", "semi;colon", "abcdefghijklmnopqrstuvwxyz012345"} {
		_, err := svc.Lookup(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrInvalidHandle, raw)
	}

	assert.Zero(t, src.callCount())
	assert.Zero(t, limiter.waits)
}

func TestLookup_Exhausted(t *testing.T) {
	svc := newTestService(t, &countingLimiter{}, nil,
		failing("a", domain.KindRateLimited),
		failing("b", domain.KindMissingCredentials),
	)

	_, err := svc.Lookup(context.Background(), "nasa")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, "a", exhausted.Attempts[0].Source)
	assert.Equal(t, domain.KindMissingCredentials, exhausted.Attempts[1].Kind)
	_, common := exhausted.CommonKind()
	assert.False(t, common)

	n, err := svc.CacheSize(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "failures are never cached")
}

func TestLookup_NormalizationFailureStopsChain(t *testing.T) {
	bad := &fakeSource{name: "weird", payload: domain.RawPayload{"status": "ok", "items": []any{}}}
	next := succeeding("mock", 1)
	svc := newTestService(t, &countingLimiter{}, nil, bad, next)

	_, err := svc.Lookup(context.Background(), "nasa")

	var normErr *NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, "weird", normErr.Source)
	assert.Equal(t, domain.RawPayload{"status": "ok", "items": []any{}}, normErr.Raw)
	assert.Zero(t, next.callCount())

	n, _ := svc.CacheSize(context.Background())
	assert.Zero(t, n)
}

func TestLookup_PanickingSourceIsAFailure(t *testing.T) {
	boom := &fakeSource{name: "boom", panics: true}
	svc := newTestService(t, &countingLimiter{}, nil, boom, succeeding("mock", 3))

	res, err := svc.Lookup(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, "mock", res.Profile.Source)
}

func TestLookup_ForeignErrorBecomesAPIError(t *testing.T) {
	odd := &fakeSource{name: "odd", err: errors.New("something odd")}
	svc := newTestService(t, &countingLimiter{}, nil, odd)

	_, err := svc.Lookup(context.Background(), "nasa")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, domain.KindAPIError, exhausted.Attempts[0].Kind)
	assert.Equal(t, "odd", exhausted.Attempts[0].Source)
}

func TestLookup_LimiterErrorAborts(t *testing.T) {
	limiter := &countingLimiter{err: context.Canceled}
	src := succeeding("mock", 1)
	svc := newTestService(t, limiter, nil, src)

	_, err := svc.Lookup(context.Background(), "nasa")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.callCount())
}

func TestLookup_FallbackPause(t *testing.T) {
	cache, err := memory.NewCache(10, time.Hour, zap.NewNop())
	require.NoError(t, err)

	svc := NewProfileService(cache, &countingLimiter{}, []domain.Source{
		failing("a", domain.KindTimeout),
		failing("b", domain.KindTimeout),
		succeeding("c", 1),
	}, nil, Config{FallbackPause: 30 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	_, err = svc.Lookup(context.Background(), "nasa")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestLookup_FallbackPauseHonorsContext(t *testing.T) {
	cache, err := memory.NewCache(10, time.Hour, zap.NewNop())
	require.NoError(t, err)

	next := succeeding("b", 1)
	svc := NewProfileService(cache, &countingLimiter{}, []domain.Source{
		failing("a", domain.KindTimeout), next,
	}, nil, Config{FallbackPause: time.Minute}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = svc.Lookup(ctx, "nasa")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, next.callCount())
}

func TestLookup_SavesSnapshot(t *testing.T) {
	snaps := &fakeSnapshots{}
	svc := newTestService(t, &countingLimiter{}, snaps, succeeding("mock", 5))

	_, err := svc.Lookup(context.Background(), "nasa")
	require.NoError(t, err)

	got, err := svc.Snapshot(context.Background(), "NASA")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Profile.Followers)
	assert.Equal(t, int64(1), got.FetchCount)
	assert.True(t, svc.SnapshotsEnabled())

	_, err = svc.Refresh(context.Background(), "nasa")
	require.NoError(t, err)

	got, err = svc.Snapshot(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.FetchCount)

	n, err := svc.SnapshotCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSnapshotCount(t *testing.T) {
	disabled := newTestService(t, &countingLimiter{}, nil, succeeding("mock", 1))
	n, err := disabled.SnapshotCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	broken := newTestService(t, &countingLimiter{}, &fakeSnapshots{countErr: errors.New("db down")}, succeeding("mock", 1))
	_, err = broken.SnapshotCount(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestLookup_SnapshotFailureDoesNotFailLookup(t *testing.T) {
	snaps := &fakeSnapshots{saveErr: errors.New("db down")}
	svc := newTestService(t, &countingLimiter{}, snaps, succeeding("mock", 5))

	res, err := svc.Lookup(context.Background(), "nasa")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Profile.Followers)
}

func TestSnapshot_Errors(t *testing.T) {
	disabled := newTestService(t, &countingLimiter{}, nil, succeeding("mock", 1))
	_, err := disabled.Snapshot(context.Background(), "nasa")
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
	assert.False(t, disabled.SnapshotsEnabled())

	enabled := newTestService(t, &countingLimiter{}, &fakeSnapshots{}, succeeding("mock", 1))
	_, err = enabled.Snapshot(context.Background(), "nasa")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = enabled.Snapshot(context.Background(), "bad handle")
	assert.ErrorIs(t, err, domain.ErrInvalidHandle)
}

func TestRefresh_BypassesCache(t *testing.T) {
	src := succeeding("mock", 1)
	svc := newTestService(t, &countingLimiter{}, nil, src)
	ctx := context.Background()

	_, err := svc.Lookup(ctx, "nasa")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, "nasa")
	require.NoError(t, err)

	assert.Equal(t, 2, src.callCount())

	res, err := svc.Lookup(ctx, "nasa")
	require.NoError(t, err)
	assert.True(t, res.Cached)
}

func TestProbe_RunsEverySource(t *testing.T) {
	limiter := &countingLimiter{}
	a := failing("a", domain.KindAuthError)
	b := succeeding("b", 10)
	c := &fakeSource{name: "c", payload: domain.RawPayload{"nothing": true}}
	svc := newTestService(t, limiter, nil, a, b, c)

	results, err := svc.Probe(context.Background(), "nasa")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].Source)
	assert.False(t, results[0].Success)
	assert.Equal(t, domain.KindAuthError, results[0].ErrorKind)

	assert.True(t, results[1].Success)
	assert.Equal(t, 2, results[1].FieldsExtracted)

	assert.False(t, results[2].Success)
	assert.Equal(t, domain.KindUnparseableResponse, results[2].ErrorKind)

	assert.Equal(t, 3, limiter.waits)
	n, _ := svc.CacheSize(context.Background())
	assert.Zero(t, n, "probe does not populate the cache")
}

func TestClearCache(t *testing.T) {
	svc := newTestService(t, &countingLimiter{}, nil, succeeding("mock", 1))
	ctx := context.Background()

	for _, h := range []string{"a", "b", "c"} {
		_, err := svc.Lookup(ctx, h)
		require.NoError(t, err)
	}

	n, err := svc.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	size, err := svc.CacheSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestSourceNames(t *testing.T) {
	svc := newTestService(t, &countingLimiter{}, nil, failing("x", domain.KindTimeout), succeeding("y", 1))

	assert.Equal(t, []string{"x", "y"}, svc.SourceNames())
}

func TestExhaustedError_CommonKind(t *testing.T) {
	e := &ExhaustedError{Attempts: []*domain.SourceError{
		domain.NewSourceError("a", domain.KindRateLimited, ""),
		domain.NewSourceError("b", domain.KindRateLimited, ""),
	}}
	kind, ok := e.CommonKind()
	assert.True(t, ok)
	assert.Equal(t, domain.KindRateLimited, kind)
	assert.Contains(t, e.Error(), "a: rate_limited")

	_, ok = (&ExhaustedError{}).CommonKind()
	assert.False(t, ok)
}
