package ratelimiter

import (
	"context"
	"time"
)

// Attempt is one recorded check. A pending attempt was reserved before the
// guarded work ran and counts as a failure until it is settled.
type Attempt struct {
	At      time.Time `json:"at"`
	Success bool      `json:"success"`
	Pending bool      `json:"pending,omitempty"`
}

// Bucket is the per-identifier state: attempts inside the window plus an
// optional block.
type Bucket struct {
	Attempts     []Attempt `json:"attempts,omitempty"`
	BlockedUntil time.Time `json:"blocked_until"`
}

// Empty reports whether the bucket carries no state worth keeping.
func (b *Bucket) Empty() bool {
	return len(b.Attempts) == 0 && b.BlockedUntil.IsZero()
}

// Store persists buckets. Update must apply fn atomically per key: two
// concurrent Updates of one key never observe the same starting state.
type Store interface {
	// Update loads the bucket for key (zero value when missing), calls fn and
	// saves the result with the given ttl. Empty buckets are removed.
	Update(ctx context.Context, key string, ttl time.Duration, fn func(*Bucket) error) error

	// Get returns a copy of the bucket for key, or nil when there is none.
	Get(ctx context.Context, key string) (*Bucket, error)

	// Delete removes the bucket for key.
	Delete(ctx context.Context, key string) error

	// Sweep calls keep for every bucket whose key has the given prefix,
	// saving any changes keep made and removing buckets it rejects.
	// Returns the number of removed buckets.
	Sweep(ctx context.Context, prefix string, keep func(*Bucket) bool) (int, error)
}
