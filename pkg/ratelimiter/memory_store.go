package ratelimiter

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps buckets in process memory. Suitable for a single
// instance; use RedisStore when several instances share limits.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*Bucket)}
}

// Update runs fn under the store lock. ttl is not used: stale buckets are
// removed by Sweep.
func (ms *MemoryStore) Update(_ context.Context, key string, _ time.Duration, fn func(*Bucket) error) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	b := ms.buckets[key]
	if b == nil {
		b = &Bucket{}
	}
	next := copyBucket(b)
	if err := fn(next); err != nil {
		return err
	}

	if next.Empty() {
		delete(ms.buckets, key)
		return nil
	}
	ms.buckets[key] = next
	return nil
}

// Get returns a copy of the bucket, or nil when the key is unknown.
func (ms *MemoryStore) Get(_ context.Context, key string) (*Bucket, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	b, ok := ms.buckets[key]
	if !ok {
		return nil, nil
	}
	return copyBucket(b), nil
}

// Delete drops the bucket. Unknown keys are ignored.
func (ms *MemoryStore) Delete(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	return nil
}

// Sweep removes the buckets under prefix that keep rejects.
// It returns how many were removed.
func (ms *MemoryStore) Sweep(_ context.Context, prefix string, keep func(*Bucket) bool) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := 0
	for key, b := range ms.buckets {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !keep(b) {
			delete(ms.buckets, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored buckets.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.buckets)
}

func copyBucket(b *Bucket) *Bucket {
	return &Bucket{
		Attempts:     slices.Clone(b.Attempts),
		BlockedUntil: b.BlockedUntil,
	}
}
