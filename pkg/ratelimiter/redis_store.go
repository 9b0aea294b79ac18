package ratelimiter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxRetries    = 10
	defaultScanBatchSize = 500
)

// RedisStore keeps buckets in Redis as JSON values so several instances
// share one set of limits. Updates use WATCH/MULTI optimistic transactions.
type RedisStore struct {
	client        redis.UniversalClient
	maxRetries    int
	scanBatchSize int64
}

// RedisStoreOption configures RedisStore.
type RedisStoreOption func(*RedisStore)

// WithMaxRetries sets how often a conflicting update is retried.
func WithMaxRetries(n int) RedisStoreOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewRedisStore creates a store backed by the given client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:        client,
		maxRetries:    defaultMaxRetries,
		scanBatchSize: defaultScanBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update runs fn inside a WATCH/MULTI transaction on key and retries
// when another client wrote the key first, up to the configured retry
// count. Exhausted retries return ErrConflict.
func (s *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn func(*Bucket) error) error {
	txf := func(tx *redis.Tx) error {
		b, err := loadBucket(ctx, tx, key)
		if err != nil {
			return err
		}
		if b == nil {
			b = &Bucket{}
		}
		if err := fn(b); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return saveBucket(ctx, pipe, key, b, ttl)
		})
		return err
	}

	for range s.maxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return errors.Join(ErrStoreUnavailable, err)
	}
	return ErrConflict
}

// Get returns the bucket, or nil when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) (*Bucket, error) {
	b, err := loadBucket(ctx, s.client, key)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return b, nil
}

// Delete removes the key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Sweep scans keys under prefix. Keys also expire on their own through the
// TTL set on every update, so this only trims buckets earlier.
func (s *RedisStore) Sweep(ctx context.Context, prefix string, keep func(*Bucket) bool) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", s.scanBatchSize).Result()
		if err != nil {
			return removed, errors.Join(ErrStoreUnavailable, err)
		}

		for _, key := range keys {
			var dropped bool
			err := s.Update(ctx, key, redis.KeepTTL, func(b *Bucket) error {
				if !keep(b) {
					*b = Bucket{}
					dropped = true
				}
				return nil
			})
			if err != nil {
				return removed, err
			}
			if dropped {
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func loadBucket(ctx context.Context, c redis.Cmdable, key string) (*Bucket, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var b Bucket
	if err := json.Unmarshal(raw, &b); err != nil {
		// A corrupt bucket is treated as empty rather than locking the key forever.
		return nil, nil
	}
	return &b, nil
}

func saveBucket(ctx context.Context, pipe redis.Pipeliner, key string, b *Bucket, ttl time.Duration) error {
	if b.Empty() {
		return pipe.Del(ctx, key).Err()
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return pipe.Set(ctx, key, data, ttl).Err()
}
