package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps users and sessions in process memory. Values are
// copied in and out so callers never share state with the store.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*User
	byEmail  map[string]uuid.UUID
	sessions map[string]*Session
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[uuid.UUID]*User),
		byEmail:  make(map[string]uuid.UUID),
		sessions: make(map[string]*Session),
	}
}

// CreateUser stores a copy of user. The email must be unused.
func (r *MemoryRepository) CreateUser(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return ErrEmailAlreadyExists
	}
	r.users[user.ID] = user.Clone()
	r.byEmail[user.Email] = user.ID
	return nil
}

// GetUserByID returns a copy of the user with the given id.
func (r *MemoryRepository) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

// GetUserByEmail looks a user up by normalized email.
func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.users[id].Clone(), nil
}

// GetUserByVerificationToken finds the user holding the hashed verification token.
func (r *MemoryRepository) GetUserByVerificationToken(_ context.Context, tokenHash string) (*User, error) {
	return r.find(func(u *User) bool { return u.EmailVerificationToken == tokenHash })
}

// GetUserByResetToken finds the user holding the hashed reset token.
func (r *MemoryRepository) GetUserByResetToken(_ context.Context, tokenHash string) (*User, error) {
	return r.find(func(u *User) bool { return u.PasswordResetToken == tokenHash })
}

func (r *MemoryRepository) find(match func(*User) bool) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

// PutUser replaces the stored user and reindexes its email.
func (r *MemoryRepository) PutUser(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if old.Email != user.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return ErrEmailAlreadyExists
		}
		delete(r.byEmail, old.Email)
		r.byEmail[user.Email] = user.ID
	}
	r.users[user.ID] = user.Clone()
	return nil
}

// RecordFailedLogin updates the counter under the write lock.
func (r *MemoryRepository) RecordFailedLogin(_ context.Context, userID uuid.UUID, now time.Time, maxAttempts int, lockUntil time.Time) (FailedLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return FailedLogin{}, ErrUserNotFound
	}
	if u.LockedUntil != nil && !now.Before(*u.LockedUntil) {
		u.LockedUntil = nil
		u.FailedLoginAttempts = 0
	}
	u.FailedLoginAttempts++
	if u.LockedUntil == nil && u.FailedLoginAttempts >= maxAttempts {
		u.LockedUntil = &lockUntil
	}
	u.UpdatedAt = now

	res := FailedLogin{Attempts: u.FailedLoginAttempts}
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		res.LockedUntil = &t
	}
	return res, nil
}

// PutSession inserts or replaces a session.
func (r *MemoryRepository) PutSession(_ context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := *session
	r.sessions[s.ID] = &s
	return nil
}

// GetSession returns a copy of the session.
func (r *MemoryRepository) GetSession(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	c := *s
	return &c, nil
}

// RotateSession swaps the family under the write lock.
func (r *MemoryRepository) RotateSession(_ context.Context, id, oldFamily, newFamily string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.TokenFamily != oldFamily {
		return false, nil
	}
	s.TokenFamily = newFamily
	s.ExpiresAt = expiresAt
	return true, nil
}

// DeleteSession removes one session.
func (r *MemoryRepository) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// DeleteSessionsForUser removes every session of the user.
func (r *MemoryRepository) DeleteSessionsForUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// SessionCount returns the number of sessions held for the user.
func (r *MemoryRepository) SessionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

var _ Repository = (*MemoryRepository)(nil)
