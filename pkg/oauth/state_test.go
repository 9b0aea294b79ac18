package oauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/oauth"
)

func TestMemoryStateStore(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	store := oauth.NewMemoryStateStore(clock)
	ctx := context.Background()
	data := oauth.StateData{Provider: oauth.ProviderGoogle, Verifier: "v", CreatedAt: clock.Now()}

	require.NoError(t, store.Save(ctx, "a", data, time.Minute))
	require.NoError(t, store.Save(ctx, "b", data, time.Minute))

	got, err := store.Consume(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = store.Consume(ctx, "a")
	assert.ErrorIs(t, err, oauth.ErrStateNotFound)

	clock.Advance(time.Minute)
	_, err = store.Consume(ctx, "b")
	assert.ErrorIs(t, err, oauth.ErrStateNotFound)

	// Saving purges expired entries.
	require.NoError(t, store.Save(ctx, "c", data, time.Minute))
	require.NoError(t, store.Save(ctx, "d", data, time.Second))
	clock.Advance(2 * time.Second)
	require.NoError(t, store.Save(ctx, "e", data, time.Minute))
	assert.Equal(t, 2, store.Len())
}

func TestRedisStateStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := oauth.NewRedisStateStore(client, "")
	ctx := context.Background()
	data := oauth.StateData{Provider: oauth.ProviderApple, Verifier: "v", CreatedAt: time.Unix(1700000000, 0).UTC()}

	require.NoError(t, store.Save(ctx, "s", data, time.Minute))
	assert.True(t, mr.Exists(oauth.DefaultStatePrefix+"s"))
	assert.Equal(t, time.Minute, mr.TTL(oauth.DefaultStatePrefix+"s"))

	got, err := store.Consume(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.False(t, mr.Exists(oauth.DefaultStatePrefix+"s"))

	_, err = store.Consume(ctx, "s")
	assert.ErrorIs(t, err, oauth.ErrStateNotFound)

	require.NoError(t, store.Save(ctx, "x", data, time.Minute))
	mr.FastForward(2 * time.Minute)
	_, err = store.Consume(ctx, "x")
	assert.ErrorIs(t, err, oauth.ErrStateNotFound)
}
