package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/inspectauth/pkg/jwt"
	"github.com/dmitrymomot/inspectauth/pkg/logger"
	"github.com/dmitrymomot/inspectauth/pkg/password"
	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
)

const (
	DefaultMaxFailedAttempts    = 10
	DefaultLockDuration         = time.Hour
	DefaultResetTokenTTL        = time.Hour
	DefaultVerificationTokenTTL = 24 * time.Hour

	opaqueTokenBytes = 32
	hookTimeout      = 10 * time.Second
)

// Limiters holds one limiter per flow so lockouts in one flow never affect
// another. A nil limiter disables limiting for its flow.
type Limiters struct {
	Login         *ratelimiter.Limiter
	Registration  *ratelimiter.Limiter
	PasswordReset *ratelimiter.Limiter
}

// Service implements email and password authentication, sessions and
// account recovery.
type Service struct {
	repo      Repository
	passwords *password.Service
	tokens    *jwt.Service
	limiters  Limiters
	notifier  Notifier
	clock     clockwork.Clock
	logger    *slog.Logger

	maxFailedAttempts    int
	lockDuration         time.Duration
	resetTokenTTL        time.Duration
	verificationTokenTTL time.Duration
	rotateRefresh        bool

	emailLocks   *keyLock
	sessionLocks *keyLock

	afterRegister func(ctx context.Context, user *User) error
	afterLogin    func(ctx context.Context, user *User) error
}

// Option configures Service.
type Option func(*Service)

// WithLogger sets the logger for security events. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithNotifier sets where verification and reset emails go. Without one
// the tokens are only logged.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithMaxFailedAttempts sets how many consecutive wrong passwords lock an account.
func WithMaxFailedAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFailedAttempts = n
		}
	}
}

// WithLockDuration sets how long a locked account stays locked.
func WithLockDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lockDuration = d
		}
	}
}

// WithResetTokenTTL sets how long a password reset token is valid.
func WithResetTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.resetTokenTTL = d
		}
	}
}

// WithVerificationTokenTTL sets how long an email verification token is valid.
func WithVerificationTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.verificationTokenTTL = d
		}
	}
}

// WithRefreshRotation issues a new refresh token under a new family on every
// refresh. The presented token's family is retired.
func WithRefreshRotation() Option {
	return func(s *Service) {
		s.rotateRefresh = true
	}
}

// WithAfterRegister sets a hook that runs after a successful registration (async).
func WithAfterRegister(fn func(context.Context, *User) error) Option {
	return func(s *Service) {
		s.afterRegister = fn
	}
}

// WithAfterLogin sets a hook that runs after every successful sign-in (async).
func WithAfterLogin(fn func(context.Context, *User) error) Option {
	return func(s *Service) {
		s.afterLogin = fn
	}
}

// NewService creates the authentication service.
func NewService(repo Repository, passwords *password.Service, tokens *jwt.Service, limiters Limiters, opts ...Option) (*Service, error) {
	if repo == nil || passwords == nil || tokens == nil {
		return nil, errors.New("auth: repository, password service and token service are required")
	}

	s := &Service{
		repo:                 repo,
		passwords:            passwords,
		tokens:               tokens,
		limiters:             limiters,
		clock:                clockwork.NewRealClock(),
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxFailedAttempts:    DefaultMaxFailedAttempts,
		lockDuration:         DefaultLockDuration,
		resetTokenTTL:        DefaultResetTokenTTL,
		verificationTokenTTL: DefaultVerificationTokenTTL,
		emailLocks:           newKeyLock(),
		sessionLocks:         newKeyLock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = logNotifier{logger: s.logger}
	}
	return s, nil
}

// checkLimit records an attempt for id and rejects it when the limiter says so.
func (s *Service) checkLimit(ctx context.Context, l *ratelimiter.Limiter, flow, id string) error {
	if l == nil {
		return nil
	}
	res, err := l.CheckLimit(ctx, id, false)
	if err != nil {
		return s.internal(ctx, "rate limiter unavailable", err, slog.String("flow", flow))
	}
	if !res.Allowed {
		s.logger.WarnContext(ctx, "attempt rate limited",
			logger.Component("auth"),
			logger.Event("rate_limited"),
			slog.String("flow", flow),
			logger.Email(id),
		)
		return &RateLimitError{ResetAt: res.ResetAt, Remaining: res.Remaining}
	}
	return nil
}

func (s *Service) resetLimit(ctx context.Context, l *ratelimiter.Limiter, id string) {
	if l == nil {
		return
	}
	if err := l.ResetLimit(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to reset rate limit",
			logger.Component("auth"),
			logger.Email(id),
			logger.Error(err),
		)
	}
}

// internal logs err and returns the opaque ErrInternal.
func (s *Service) internal(ctx context.Context, msg string, err error, attrs ...slog.Attr) error {
	args := []any{logger.Component("auth"), logger.Error(err)}
	for _, a := range attrs {
		args = append(args, a)
	}
	s.logger.ErrorContext(ctx, msg, args...)
	return ErrInternal
}

// runHook runs fn in the background with its own timeout.
func (s *Service) runHook(name string, fn func(context.Context, *User) error, user *User) {
	if fn == nil {
		return
	}
	u := user.Clone()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(name+" hook panicked",
					logger.UserID(u.ID),
					slog.Any("panic", r),
					logger.Component("auth"),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
		defer cancel()

		if err := fn(ctx, u); err != nil {
			s.logger.Error(name+" hook failed",
				logger.UserID(u.ID),
				logger.Error(err),
				logger.Component("auth"),
			)
		}
	}()
}

// newOpaqueToken returns a random URL-safe token and the digest to store.
func newOpaqueToken() (raw, digest string, err error) {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func timePtr(t time.Time) *time.Time { return &t }
