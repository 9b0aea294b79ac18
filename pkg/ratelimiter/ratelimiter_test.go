package ratelimiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
)

func newLimiter(t *testing.T, store ratelimiter.Store, cfg ratelimiter.Config, clock clockwork.Clock, prefix string) *ratelimiter.Limiter {
	t.Helper()
	l, err := ratelimiter.New(store, cfg, ratelimiter.WithClock(clock), ratelimiter.WithPrefix(prefix))
	require.NoError(t, err)
	return l
}

var smallConfig = ratelimiter.Config{
	Window:        time.Second,
	MaxAttempts:   2,
	BlockDuration: 5 * time.Second,
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ratelimiter.Config
	}{
		{"zero window", ratelimiter.Config{MaxAttempts: 1, BlockDuration: time.Second}},
		{"zero attempts", ratelimiter.Config{Window: time.Second, BlockDuration: time.Second}},
		{"zero block", ratelimiter.Config{Window: time.Second, MaxAttempts: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimiter.New(ratelimiter.NewMemoryStore(), tt.cfg)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}

	_, err := ratelimiter.New(nil, smallConfig)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

func TestCheckLimit_BlocksAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	l := newLimiter(t, ratelimiter.NewMemoryStore(), smallConfig, clock, "login:")

	res, err := l.CheckLimit(ctx, "a@b.com", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	res, err = l.CheckLimit(ctx, "a@b.com", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, err = l.CheckLimit(ctx, "a@b.com", false)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.Blocked)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, clock.Now().Add(5*time.Second), res.ResetAt)
	assert.Equal(t, 5*time.Second, res.RetryAfter(clock.Now()))

	// Still blocked after the window, before the block expires.
	clock.Advance(2 * time.Second)
	res, err = l.CheckLimit(ctx, "a@b.com", true)
	require.NoError(t, err)
	assert.True(t, res.Blocked)

	clock.Advance(3 * time.Second)
	res, err = l.CheckLimit(ctx, "a@b.com", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.False(t, res.Blocked)
	assert.Equal(t, 1, res.Remaining)
}

func TestCheckLimit_BlockedCallsDoNotExtendBlock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	l := newLimiter(t, ratelimiter.NewMemoryStore(), smallConfig, clock, "")

	for range 3 {
		_, err := l.CheckLimit(ctx, "id", false)
		require.NoError(t, err)
	}
	first, err := l.Status(ctx, "id")
	require.NoError(t, err)

	clock.Advance(time.Second)
	res, err := l.CheckLimit(ctx, "id", false)
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.Equal(t, first.ResetAt, res.ResetAt)
}

func TestCheckLimit_RemainingDecreasesThenResets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	cfg := ratelimiter.Config{Window: time.Minute, MaxAttempts: 5, BlockDuration: time.Minute}
	l := newLimiter(t, ratelimiter.NewMemoryStore(), cfg, clock, "")

	prev := cfg.MaxAttempts
	for range 4 {
		res, err := l.CheckLimit(ctx, "id", false)
		require.NoError(t, err)
		require.True(t, res.Allowed)
		assert.Less(t, res.Remaining, prev)
		prev = res.Remaining
		clock.Advance(time.Second)
	}

	status, err := l.Status(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, 1, status.Remaining)

	clock.Advance(time.Minute)
	status, err = l.Status(ctx, "id")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, cfg.MaxAttempts, status.Remaining)
}

func TestCheckLimit_SuccessesDoNotCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := newLimiter(t, ratelimiter.NewMemoryStore(), smallConfig, clockwork.NewFakeClock(), "")

	for range 10 {
		res, err := l.CheckLimit(ctx, "id", true)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1, res.Remaining)
	}
}

func TestCheckLimit_EmptyIdentifier(t *testing.T) {
	t.Parallel()
	l := newLimiter(t, ratelimiter.NewMemoryStore(), smallConfig, clockwork.NewFakeClock(), "")

	_, err := l.CheckLimit(context.Background(), "", false)
	assert.ErrorIs(t, err, ratelimiter.ErrEmptyIdentifier)
	_, err = l.Status(context.Background(), "")
	assert.ErrorIs(t, err, ratelimiter.ErrEmptyIdentifier)
	assert.ErrorIs(t, l.ResetLimit(context.Background(), ""), ratelimiter.ErrEmptyIdentifier)
}

func TestResetLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := newLimiter(t, ratelimiter.NewMemoryStore(), smallConfig, clockwork.NewFakeClock(), "")

	for range 3 {
		_, err := l.CheckLimit(ctx, "id", false)
		require.NoError(t, err)
	}
	status, err := l.Status(ctx, "id")
	require.NoError(t, err)
	require.True(t, status.Blocked)

	require.NoError(t, l.ResetLimit(ctx, "id"))

	status, err = l.Status(ctx, "id")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, smallConfig.MaxAttempts, status.Remaining)
}

func TestStatus_DoesNotRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := ratelimiter.NewMemoryStore()
	l := newLimiter(t, store, smallConfig, clockwork.NewFakeClock(), "")

	for range 5 {
		res, err := l.Status(ctx, "id")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	}
	assert.Equal(t, 0, store.Len())
}

func TestLimitersAreIsolatedByPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := ratelimiter.NewMemoryStore()
	clock := clockwork.NewFakeClock()
	login := newLimiter(t, store, smallConfig, clock, "login:")
	reset := newLimiter(t, store, smallConfig, clock, "reset:")

	for range 3 {
		_, err := login.CheckLimit(ctx, "a@b.com", false)
		require.NoError(t, err)
	}

	res, err := reset.CheckLimit(ctx, "a@b.com", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := ratelimiter.NewMemoryStore()
	clock := clockwork.NewFakeClock()
	l := newLimiter(t, store, smallConfig, clock, "login:")
	other := newLimiter(t, store, smallConfig, clock, "other:")

	_, err := l.CheckLimit(ctx, "stale", false)
	require.NoError(t, err)
	for range 3 {
		_, err = l.CheckLimit(ctx, "blocked", false)
		require.NoError(t, err)
	}
	_, err = other.CheckLimit(ctx, "foreign", false)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = l.CheckLimit(ctx, "fresh", false)
	require.NoError(t, err)

	removed, err := l.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed) // stale
	assert.Equal(t, 3, store.Len())

	clock.Advance(5 * time.Second)
	removed, err = l.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed) // blocked and fresh
	assert.Equal(t, 1, store.Len())
}

func TestStartCleanup(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := ratelimiter.NewMemoryStore()
	clock := clockwork.NewFakeClock()
	l := newLimiter(t, store, smallConfig, clock, "")

	_, err := l.CheckLimit(ctx, "id", false)
	require.NoError(t, err)

	l.StartCleanup(ctx, time.Minute)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCheckLimit_ConcurrentCannotExceedLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := ratelimiter.Config{Window: time.Minute, MaxAttempts: 5, BlockDuration: time.Minute}
	l := newLimiter(t, ratelimiter.NewMemoryStore(), cfg, clockwork.NewFakeClock(), "")

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.CheckLimit(ctx, "shared", false)
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(cfg.MaxAttempts), allowed.Load())
}

func TestResult_RetryAfter(t *testing.T) {
	t.Parallel()
	now := time.Now()

	assert.Zero(t, ratelimiter.Result{Allowed: true, ResetAt: now.Add(time.Minute)}.RetryAfter(now))
	assert.Zero(t, ratelimiter.Result{ResetAt: now.Add(-time.Minute)}.RetryAfter(now))
	assert.Equal(t, time.Minute, ratelimiter.Result{ResetAt: now.Add(time.Minute)}.RetryAfter(now))
}

func TestReserveAndSettle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	l := newLimiter(t, ratelimiter.NewMemoryStore(), smallConfig, clock, "ip:")

	first, r1, err := l.Reserve(ctx, "1.1.1.1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second, r2, err := l.Reserve(ctx, "1.1.1.1")
	require.NoError(t, err)
	assert.True(t, second.Allowed)

	// The budget is taken by in-flight attempts: rejected, but not blocked.
	full, _, err := l.Reserve(ctx, "1.1.1.1")
	require.NoError(t, err)
	assert.False(t, full.Allowed)
	assert.False(t, full.Blocked)
	assert.Equal(t, time.Second, full.RetryAfter(clock.Now()))

	// A success frees its slot.
	require.NoError(t, l.Settle(ctx, r1, true))
	again, r3, err := l.Reserve(ctx, "1.1.1.1")
	require.NoError(t, err)
	assert.True(t, again.Allowed)

	// Two settled failures block the key on the next reservation.
	require.NoError(t, l.Settle(ctx, r2, false))
	require.NoError(t, l.Settle(ctx, r3, false))
	blocked, _, err := l.Reserve(ctx, "1.1.1.1")
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)
	assert.Equal(t, clock.Now().Add(5*time.Second), blocked.ResetAt)

	assert.ErrorIs(t, l.Settle(ctx, ratelimiter.Reservation{}, true), ratelimiter.ErrEmptyIdentifier)
	_, _, err = l.Reserve(ctx, "")
	assert.ErrorIs(t, err, ratelimiter.ErrEmptyIdentifier)
}

func TestReserve_ConcurrentCannotExceedLimit(t *testing.T) {
	t.Parallel()
	l := newLimiter(t, ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Window:        time.Minute,
		MaxAttempts:   3,
		BlockDuration: time.Minute,
	}, clockwork.NewFakeClock(), "ip:")

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _, err := l.Reserve(context.Background(), "burst")
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), allowed.Load())
}
