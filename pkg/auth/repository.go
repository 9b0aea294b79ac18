package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists users and sessions. Lookups return ErrUserNotFound or
// ErrSessionNotFound when nothing matches; CreateUser and PutUser return
// ErrEmailAlreadyExists when the email belongs to another user.
//
// RotateSession and RecordFailedLogin must be atomic in the backing store:
// several service instances may share one repository.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByVerificationToken(ctx context.Context, tokenHash string) (*User, error)
	GetUserByResetToken(ctx context.Context, tokenHash string) (*User, error)
	PutUser(ctx context.Context, user *User) error
	// RecordFailedLogin increments the failure counter and returns its new
	// state. A lock that expired before now restarts the count at one.
	// Reaching maxAttempts locks the account until lockUntil; an active lock
	// is kept as is.
	RecordFailedLogin(ctx context.Context, userID uuid.UUID, now time.Time, maxAttempts int, lockUntil time.Time) (FailedLogin, error)

	PutSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// RotateSession replaces the token family only while it still equals
	// oldFamily. It reports false when the session is gone or another caller
	// rotated it first.
	RotateSession(ctx context.Context, id, oldFamily, newFamily string, expiresAt time.Time) (bool, error)
	// DeleteSession is a no-op for unknown ids.
	DeleteSession(ctx context.Context, id string) error
	// DeleteSessionsForUser returns how many sessions were removed.
	DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// FailedLogin is the lockout state after a recorded failure.
type FailedLogin struct {
	Attempts    int
	LockedUntil *time.Time
}
