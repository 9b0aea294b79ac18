// Package redis connects the shared Redis instance that backs the
// distributed rate limiter and OAuth state stores.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := ratelimiter.NewRedisStore(client)
//
// Connect retries the initial ping and gives up after RetryAttempts or when
// ConnectTimeout elapses, whichever comes first.
package redis
