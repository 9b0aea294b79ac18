package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrSessionNotFound    = errors.New("auth: session not found")
	ErrEmailAlreadyExists = errors.New("auth: email already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. Callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrAccountLocked   = errors.New("auth: account locked")
	ErrAccountInactive = errors.New("auth: account inactive")
	ErrRateLimited     = errors.New("auth: too many attempts")

	// ErrInvalidToken covers access, refresh, link, verification and reset
	// tokens that are malformed, expired, unknown or already used.
	ErrInvalidToken = errors.New("auth: invalid or expired token")

	// ErrTokenReuseDetected means a refresh token from a retired family was
	// presented. Every session of the user has been revoked.
	ErrTokenReuseDetected = errors.New("auth: refresh token reuse detected")

	ErrUseProvider     = errors.New("auth: account uses another sign-in provider")
	ErrUnverifiedEmail = errors.New("auth: provider did not verify the email")

	// ErrInternal hides store and signing failures. Details are logged.
	ErrInternal = errors.New("auth: internal error")
)

// RateLimitError reports a rejected attempt and when the caller may retry.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.ResetAt.UTC().Format(time.RFC3339))
}

// Is reports ErrRateLimited as a match.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// LockedError reports an account locked after repeated failed logins.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrAccountLocked, e.Until.UTC().Format(time.RFC3339))
}

// Is reports ErrAccountLocked as a match.
func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// ProviderConflictError tells the caller which provider owns the email.
type ProviderConflictError struct {
	Provider string
}

func (e *ProviderConflictError) Error() string {
	return fmt.Sprintf("%s: sign in with %s", ErrUseProvider, e.Provider)
}

// Is reports ErrUseProvider as a match.
func (e *ProviderConflictError) Is(target error) bool { return target == ErrUseProvider }
