package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

// Config parameterizes one limiter instance.
type Config struct {
	Window        time.Duration `env:"WINDOW" envDefault:"15m"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	BlockDuration time.Duration `env:"BLOCK_DURATION" envDefault:"15m"`
}

func (c Config) validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidConfig, c.Window)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.BlockDuration <= 0 {
		return fmt.Errorf("%w: block duration must be positive, got %v", ErrInvalidConfig, c.BlockDuration)
	}
	return nil
}

// Result is the outcome of a check.
type Result struct {
	Allowed   bool
	Blocked   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait. Zero when allowed.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Limiter is a sliding-window failed-attempt counter with temporary blocking.
// Use one instance per protected flow so counters never leak across flows.
type Limiter struct {
	store  Store
	config Config
	prefix string
	clock  clockwork.Clock
	logger *slog.Logger
}

// Option configures Limiter.
type Option func(*Limiter)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithPrefix namespaces keys so several limiters can share one store.
func WithPrefix(prefix string) Option {
	return func(l *Limiter) {
		l.prefix = prefix
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.logger = log
		}
	}
}

// New creates a limiter over store.
func New(store Store, config Config, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	l := &Limiter{
		store:  store,
		config: config,
		prefix: "ratelimit:",
		clock:  clockwork.NewRealClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns the limiter parameters.
func (l *Limiter) Config() Config { return l.config }

// CheckLimit records an attempt for id and reports whether it is allowed.
// A currently blocked id is rejected without touching its state. Otherwise
// attempts older than the window are dropped; when the failures left reach
// MaxAttempts the id is blocked for BlockDuration, else the attempt is
// appended.
func (l *Limiter) CheckLimit(ctx context.Context, id string, success bool) (Result, error) {
	if id == "" {
		return Result{}, ErrEmptyIdentifier
	}

	now := l.clock.Now()
	var res Result
	err := l.store.Update(ctx, l.key(id), l.ttl(), func(b *Bucket) error {
		res = l.evaluate(b, now, true, success)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("ratelimiter: check: %w", err)
	}

	if res.Blocked {
		l.logger.WarnContext(ctx, "rate limit block active",
			logger.Component("ratelimiter"),
			logger.Event("rate_limited"),
			logger.Identifier(l.key(id)),
			slog.Time("reset_at", res.ResetAt),
		)
	}
	return res, nil
}

// pendingRetry is the Retry-After hint when the budget is only taken by
// attempts still in flight.
const pendingRetry = time.Second

// Reservation identifies a pending attempt recorded by Reserve.
type Reservation struct {
	key string
	at  time.Time
}

// Reserve records a pending attempt for id before the guarded work runs, so
// concurrent callers cannot all pass the gate at once. Pending attempts count
// against the budget until Settle resolves them; only settled failures
// trigger a block. When Allowed is false nothing is recorded.
func (l *Limiter) Reserve(ctx context.Context, id string) (Result, Reservation, error) {
	if id == "" {
		return Result{}, Reservation{}, ErrEmptyIdentifier
	}

	now := l.clock.Now()
	var res Result
	err := l.store.Update(ctx, l.key(id), l.ttl(), func(b *Bucket) error {
		res = l.reserve(b, now)
		return nil
	})
	if err != nil {
		return Result{}, Reservation{}, fmt.Errorf("ratelimiter: reserve: %w", err)
	}

	if !res.Allowed {
		l.logger.WarnContext(ctx, "rate limit reservation rejected",
			logger.Component("ratelimiter"),
			logger.Event("rate_limited"),
			logger.Identifier(l.key(id)),
			slog.Bool("blocked", res.Blocked),
			slog.Time("reset_at", res.ResetAt),
		)
		return res, Reservation{}, nil
	}
	return res, Reservation{key: l.key(id), at: now}, nil
}

// Settle resolves a reservation made by Reserve. A successful outcome stops
// counting against the budget; a failed one stays as a regular failure.
// Settling an attempt that already left the window is a no-op.
func (l *Limiter) Settle(ctx context.Context, r Reservation, success bool) error {
	if r.key == "" {
		return ErrEmptyIdentifier
	}
	err := l.store.Update(ctx, r.key, l.ttl(), func(b *Bucket) error {
		for i := range b.Attempts {
			a := &b.Attempts[i]
			if a.Pending && a.At.Equal(r.at) {
				a.Pending = false
				a.Success = success
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ratelimiter: settle: %w", err)
	}
	return nil
}

// ResetLimit clears all attempts and any block for id.
func (l *Limiter) ResetLimit(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyIdentifier
	}
	if err := l.store.Delete(ctx, l.key(id)); err != nil {
		return fmt.Errorf("ratelimiter: reset: %w", err)
	}
	return nil
}

// Status reports what CheckLimit would see without recording an attempt.
// Remaining is the number of failures still tolerated.
func (l *Limiter) Status(ctx context.Context, id string) (Result, error) {
	if id == "" {
		return Result{}, ErrEmptyIdentifier
	}

	b, err := l.store.Get(ctx, l.key(id))
	if err != nil {
		return Result{}, fmt.Errorf("ratelimiter: status: %w", err)
	}
	if b == nil {
		b = &Bucket{}
	}
	return l.evaluate(b, l.clock.Now(), false, false), nil
}

// Cleanup removes buckets with no attempts inside the window and no active
// block. Returns the number of removed buckets.
func (l *Limiter) Cleanup(ctx context.Context) (int, error) {
	now := l.clock.Now()
	removed, err := l.store.Sweep(ctx, l.prefix, func(b *Bucket) bool {
		if !b.BlockedUntil.IsZero() && !now.Before(b.BlockedUntil) {
			b.BlockedUntil = time.Time{}
		}
		l.prune(b, now)
		return !b.Empty()
	})
	if err != nil {
		return removed, fmt.Errorf("ratelimiter: cleanup: %w", err)
	}
	if removed > 0 {
		l.logger.DebugContext(ctx, "rate limit buckets removed",
			logger.Component("ratelimiter"),
			slog.Int("removed", removed),
		)
	}
	return removed, nil
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (l *Limiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := l.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if _, err := l.Cleanup(ctx); err != nil && !errors.Is(err, context.Canceled) {
					l.logger.ErrorContext(ctx, "rate limit cleanup failed",
						logger.Component("ratelimiter"),
						logger.Error(err),
					)
				}
			}
		}
	}()
}

// evaluate applies the sliding-window rules to b. With record set it mutates
// b the way CheckLimit does; otherwise b is only read.
func (l *Limiter) evaluate(b *Bucket, now time.Time, record, success bool) Result {
	if !b.BlockedUntil.IsZero() {
		if now.Before(b.BlockedUntil) {
			return Result{Blocked: true, ResetAt: b.BlockedUntil}
		}
		// Expired block: start over with a clean history.
		if record {
			*b = Bucket{}
		} else {
			return Result{Allowed: true, Remaining: l.config.MaxAttempts, ResetAt: now.Add(l.config.Window)}
		}
	}

	var attempts []Attempt
	if record {
		l.prune(b, now)
		attempts = b.Attempts
	} else {
		attempts = inWindow(b.Attempts, now.Add(-l.config.Window))
	}

	failed, oldest := countFailed(attempts)
	resetAt := now.Add(l.config.Window)
	if !oldest.IsZero() {
		resetAt = oldest.Add(l.config.Window)
	}

	if failed >= l.config.MaxAttempts {
		if !record {
			return Result{ResetAt: resetAt}
		}
		b.BlockedUntil = now.Add(l.config.BlockDuration)
		return Result{Blocked: true, ResetAt: b.BlockedUntil}
	}

	if !record {
		return Result{Allowed: true, Remaining: l.config.MaxAttempts - failed, ResetAt: resetAt}
	}

	b.Attempts = append(b.Attempts, Attempt{At: now, Success: success})
	return Result{
		Allowed:   true,
		Remaining: l.config.MaxAttempts - failed - 1,
		ResetAt:   resetAt,
	}
}

// reserve mirrors evaluate for a pending attempt. Settled failures decide the
// block; pending ones only fill the budget.
func (l *Limiter) reserve(b *Bucket, now time.Time) Result {
	if !b.BlockedUntil.IsZero() {
		if now.Before(b.BlockedUntil) {
			return Result{Blocked: true, ResetAt: b.BlockedUntil}
		}
		*b = Bucket{}
	}

	l.prune(b, now)
	failed, oldest := countFailed(b.Attempts)
	pending := countPending(b.Attempts)

	if failed-pending >= l.config.MaxAttempts {
		b.BlockedUntil = now.Add(l.config.BlockDuration)
		return Result{Blocked: true, ResetAt: b.BlockedUntil}
	}
	if failed >= l.config.MaxAttempts {
		return Result{ResetAt: now.Add(pendingRetry)}
	}

	resetAt := now.Add(l.config.Window)
	if !oldest.IsZero() {
		resetAt = oldest.Add(l.config.Window)
	}
	b.Attempts = append(b.Attempts, Attempt{At: now, Pending: true})
	return Result{
		Allowed:   true,
		Remaining: l.config.MaxAttempts - failed - 1,
		ResetAt:   resetAt,
	}
}

func (l *Limiter) prune(b *Bucket, now time.Time) {
	b.Attempts = inWindow(b.Attempts, now.Add(-l.config.Window))
}

func (l *Limiter) key(id string) string {
	return l.prefix + id
}

// ttl bounds how long a bucket may be relevant: a full window of attempts
// followed by a block.
func (l *Limiter) ttl() time.Duration {
	return l.config.Window + l.config.BlockDuration
}

// inWindow returns the attempts at or after cutoff. Attempts are kept in
// arrival order, so the result is a suffix.
func inWindow(attempts []Attempt, cutoff time.Time) []Attempt {
	for i, a := range attempts {
		if !a.At.Before(cutoff) {
			return attempts[i:]
		}
	}
	return nil
}

func countPending(attempts []Attempt) int {
	n := 0
	for _, a := range attempts {
		if a.Pending {
			n++
		}
	}
	return n
}

// countFailed counts pending attempts as failures.
func countFailed(attempts []Attempt) (int, time.Time) {
	var (
		failed int
		oldest time.Time
	)
	for _, a := range attempts {
		if a.Success {
			continue
		}
		if failed == 0 {
			oldest = a.At
		}
		failed++
	}
	return failed, oldest
}
