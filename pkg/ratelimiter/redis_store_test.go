package ratelimiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
)

func newRedisStore(t *testing.T) (*ratelimiter.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimiter.NewRedisStore(client), mr
}

func TestRedisStore_BlocksAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)
	clock := clockwork.NewFakeClock()
	l := newLimiter(t, store, smallConfig, clock, "login:")

	for i := range 2 {
		res, err := l.CheckLimit(ctx, "a@b.com", false)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1-i, res.Remaining)
	}

	res, err := l.CheckLimit(ctx, "a@b.com", false)
	require.NoError(t, err)
	assert.True(t, res.Blocked)

	assert.True(t, mr.Exists("login:a@b.com"))
	assert.Equal(t, smallConfig.Window+smallConfig.BlockDuration, mr.TTL("login:a@b.com"))

	clock.Advance(smallConfig.BlockDuration)
	res, err = l.CheckLimit(ctx, "a@b.com", false)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisStore_ResetDeletesKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)
	l := newLimiter(t, store, smallConfig, clockwork.NewFakeClock(), "reset:")

	_, err := l.CheckLimit(ctx, "id", false)
	require.NoError(t, err)
	require.True(t, mr.Exists("reset:id"))

	require.NoError(t, l.ResetLimit(ctx, "id"))
	assert.False(t, mr.Exists("reset:id"))

	b, err := store.Get(ctx, "reset:id")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestRedisStore_Cleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)
	clock := clockwork.NewFakeClock()
	l := newLimiter(t, store, smallConfig, clock, "login:")

	_, err := l.CheckLimit(ctx, "stale", false)
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	_, err = l.CheckLimit(ctx, "fresh", false)
	require.NoError(t, err)

	removed, err := l.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, mr.Exists("login:stale"))
	assert.True(t, mr.Exists("login:fresh"))
}

func TestRedisStore_ConcurrentCannotExceedLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newRedisStore(t)
	cfg := ratelimiter.Config{Window: time.Minute, MaxAttempts: 3, BlockDuration: time.Minute}
	l, err := ratelimiter.New(
		store, cfg,
		ratelimiter.WithClock(clockwork.NewFakeClock()),
	)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
	)
	for range 10 {
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

	assert.LessOrEqual(t, allowed.Load(), int64(cfg.MaxAttempts))
}

func TestRedisStore_CorruptValueIsIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set("login:bad", "{not json"))

	b, err := store.Get(ctx, "login:bad")
	require.NoError(t, err)
	assert.Nil(t, b)
}
