package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
	"github.com/dmitrymomot/inspectauth/pkg/sanitizer"
	"github.com/dmitrymomot/inspectauth/pkg/validator"
)

// GetUser returns the public profile of a user.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*PublicUser, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, s.internal(ctx, "failed to load user", err)
	}
	pub := user.Public()
	return &pub, nil
}

// VerifyEmail consumes a verification token and marks the email verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*PublicUser, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	digest := hashToken(token)

	found, err := s.repo.GetUserByVerificationToken(ctx, digest)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, s.internal(ctx, "failed to load user by verification token", err)
	}

	unlock := s.emailLocks.Lock(found.Email)
	defer unlock()

	user, err := s.repo.GetUserByID(ctx, found.ID)
	if err != nil {
		return nil, s.internal(ctx, "failed to load user", err)
	}
	if user.EmailVerificationToken != digest {
		return nil, ErrInvalidToken
	}

	now := s.clock.Now()
	expired := user.EmailVerificationExpiry != nil && !now.Before(*user.EmailVerificationExpiry)

	user.EmailVerificationToken = ""
	user.EmailVerificationExpiry = nil
	if !expired {
		user.EmailVerified = true
	}
	user.UpdatedAt = now
	if err := s.repo.PutUser(ctx, user); err != nil {
		return nil, s.internal(ctx, "failed to update user", err)
	}
	if expired {
		return nil, ErrInvalidToken
	}

	s.logger.InfoContext(ctx, "email verified",
		logger.Component("auth"),
		logger.UserID(user.ID),
	)
	pub := user.Public()
	return &pub, nil
}

// ResendVerification issues a new verification token, replacing the previous
// one. It returns nil for unknown or already verified emails.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.Required("email", email), validator.ValidEmail("email", email)); err != nil {
		return err
	}
	if err := s.checkLimit(ctx, s.limiters.Registration, "resend_verification", email); err != nil {
		return err
	}

	unlock := s.emailLocks.Lock(email)
	defer unlock()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return s.internal(ctx, "failed to load user", err)
	}
	if user.EmailVerified || !user.IsActive {
		return nil
	}

	token, digest, err := newOpaqueToken()
	if err != nil {
		return s.internal(ctx, "failed to generate verification token", err)
	}

	now := s.clock.Now()
	user.EmailVerificationToken = digest
	user.EmailVerificationExpiry = timePtr(now.Add(s.verificationTokenTTL))
	user.UpdatedAt = now
	if err := s.repo.PutUser(ctx, user); err != nil {
		return s.internal(ctx, "failed to store verification token", err)
	}

	if err := s.notifier.SendVerificationEmail(ctx, user.Email, user.Name, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			logger.Component("auth"),
			logger.UserID(user.ID),
			logger.Error(err),
		)
	}
	return nil
}

// Deactivate disables an account and revokes its sessions. The record is kept.
func (s *Service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	found, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return s.internal(ctx, "failed to load user", err)
	}

	unlock := s.emailLocks.Lock(found.Email)
	defer unlock()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return s.internal(ctx, "failed to load user", err)
	}
	user.IsActive = false
	user.UpdatedAt = s.clock.Now()
	if err := s.repo.PutUser(ctx, user); err != nil {
		return s.internal(ctx, "failed to deactivate user", err)
	}
	if _, err := s.repo.DeleteSessionsForUser(ctx, userID); err != nil {
		return s.internal(ctx, "failed to revoke sessions", err)
	}

	s.logger.InfoContext(ctx, "user deactivated",
		logger.Component("auth"),
		logger.Event("deactivated"),
		logger.UserID(userID),
	)
	return nil
}
