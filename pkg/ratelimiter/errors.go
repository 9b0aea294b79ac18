package ratelimiter

import "errors"

var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("ratelimiter: invalid configuration")

	// ErrEmptyIdentifier is returned when a check is made without a key.
	ErrEmptyIdentifier = errors.New("ratelimiter: empty identifier")

	// ErrStoreUnavailable indicates that the store backend failed.
	ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")

	// ErrConflict is returned when an optimistic update kept losing races.
	ErrConflict = errors.New("ratelimiter: too many concurrent updates")
)
