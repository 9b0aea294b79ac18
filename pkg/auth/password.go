package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
	"github.com/dmitrymomot/inspectauth/pkg/password"
	"github.com/dmitrymomot/inspectauth/pkg/sanitizer"
	"github.com/dmitrymomot/inspectauth/pkg/validator"
)

// RegisterInput is the raw sign-up form.
type RegisterInput = validator.RegistrationInput

// LoginInput is the raw sign-in form.
type LoginInput = validator.LoginInput

// Register creates an unverified email and password account and sends the
// verification token through the Notifier. Validation failures are returned
// together as validator.ValidationErrors.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if key := sanitizer.NormalizeEmail(in.Email); key != "" {
		if err := s.checkLimit(ctx, s.limiters.Registration, "registration", key); err != nil {
			return nil, err
		}
	}

	data, err := validator.ValidateRegistrationData(in)
	if err != nil {
		return nil, err
	}

	unlock := s.emailLocks.Lock(data.Email)
	defer unlock()

	_, err = s.repo.GetUserByEmail(ctx, data.Email)
	if err == nil {
		return nil, ErrEmailAlreadyExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, s.internal(ctx, "failed to check existing user", err)
	}

	hash, err := s.passwords.Hash(data.Password)
	if err != nil {
		if errors.Is(err, password.ErrWeakPassword) {
			return nil, err
		}
		return nil, s.internal(ctx, "failed to hash password", err)
	}

	token, digest, err := newOpaqueToken()
	if err != nil {
		return nil, s.internal(ctx, "failed to generate verification token", err)
	}

	now := s.clock.Now()
	user := &User{
		ID:                      uuid.New(),
		Email:                   data.Email,
		Name:                    data.Name,
		Phone:                   data.Phone,
		Role:                    Role(data.Role),
		PasswordHash:            hash,
		Provider:                ProviderEmail,
		IsActive:                true,
		EmailVerificationToken:  digest,
		EmailVerificationExpiry: timePtr(now.Add(s.verificationTokenTTL)),
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, s.internal(ctx, "failed to create user", err)
	}

	if err := s.notifier.SendVerificationEmail(ctx, user.Email, user.Name, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			logger.Component("auth"),
			logger.UserID(user.ID),
			logger.Error(err),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		logger.Component("auth"),
		logger.UserID(user.ID),
		slog.String("role", string(user.Role)),
	)
	s.runHook("afterRegister", s.afterRegister, user)

	return &RegisterResult{User: user.Public(), VerificationToken: token}, nil
}

// Login signs in with email and password and opens a new session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if key := sanitizer.NormalizeEmail(in.Email); key != "" {
		if err := s.checkLimit(ctx, s.limiters.Login, "login", key); err != nil {
			return nil, err
		}
	}

	data, err := validator.ValidateLoginCredentials(in)
	if err != nil {
		return nil, err
	}

	unlock := s.emailLocks.Lock(data.Email)
	defer unlock()

	user, err := s.verifyCredentials(ctx, data.Email, data.Password)
	if err != nil {
		return nil, err
	}

	user.LastLogin = timePtr(s.clock.Now())
	user.UpdatedAt = *user.LastLogin
	if err := s.repo.PutUser(ctx, user); err != nil {
		return nil, s.internal(ctx, "failed to record login", err)
	}
	s.resetLimit(ctx, s.limiters.Login, data.Email)

	return s.completeLogin(ctx, user)
}

// verifyCredentials checks a password against the account under the caller's
// email lock. Every failure runs a bcrypt comparison so timing does not tell
// an unknown email from a wrong password. On success the failure counter and
// lock are cleared on the returned user, which the caller must persist.
func (s *Service) verifyCredentials(ctx context.Context, email, pw string) (*User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		s.passwords.CompareDummy(pw)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "failed to load user", err)
	}

	now := s.clock.Now()
	if user.IsLocked(now) {
		s.passwords.CompareDummy(pw)
		s.logger.WarnContext(ctx, "login attempt on locked account",
			logger.Component("auth"),
			logger.Event("locked_login"),
			logger.UserID(user.ID),
		)
		return nil, &LockedError{Until: *user.LockedUntil}
	}
	if user.LockedUntil != nil {
		user.LockedUntil = nil
		user.FailedLoginAttempts = 0
	}

	if !user.IsActive {
		s.passwords.CompareDummy(pw)
		return nil, ErrAccountInactive
	}

	if user.PasswordHash == "" {
		s.passwords.CompareDummy(pw)
		return nil, ErrInvalidCredentials
	}

	if !s.passwords.Verify(pw, user.PasswordHash) {
		failed, err := s.repo.RecordFailedLogin(ctx, user.ID, now, s.maxFailedAttempts, now.Add(s.lockDuration))
		if err != nil {
			return nil, s.internal(ctx, "failed to record failed login", err)
		}
		if failed.LockedUntil != nil && failed.Attempts == s.maxFailedAttempts {
			s.logger.WarnContext(ctx, "account locked after repeated failed logins",
				logger.Component("auth"),
				logger.Event("account_locked"),
				logger.UserID(user.ID),
				slog.Int("failed_attempts", failed.Attempts),
			)
		}
		return nil, ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return user, nil
}

// InitiatePasswordReset sends a single-use reset token when the email belongs
// to an active account. It returns nil for unknown emails.
func (s *Service) InitiatePasswordReset(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.Required("email", email), validator.ValidEmail("email", email)); err != nil {
		return err
	}
	if err := s.checkLimit(ctx, s.limiters.PasswordReset, "password_reset", email); err != nil {
		return err
	}

	unlock := s.emailLocks.Lock(email)
	defer unlock()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		s.logger.DebugContext(ctx, "password reset for unknown email",
			logger.Component("auth"),
			logger.Email(email),
		)
		return nil
	}
	if err != nil {
		return s.internal(ctx, "failed to load user", err)
	}
	if !user.IsActive {
		return nil
	}

	token, digest, err := newOpaqueToken()
	if err != nil {
		return s.internal(ctx, "failed to generate reset token", err)
	}

	now := s.clock.Now()
	user.PasswordResetToken = digest
	user.PasswordResetExpiry = timePtr(now.Add(s.resetTokenTTL))
	user.UpdatedAt = now
	if err := s.repo.PutUser(ctx, user); err != nil {
		return s.internal(ctx, "failed to store reset token", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password reset email",
			logger.Component("auth"),
			logger.UserID(user.ID),
			logger.Error(err),
		)
	}
	return nil
}

// CompletePasswordReset sets a new password with a reset token. The token is
// consumed, any lockout is cleared and every session is revoked.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	if err := validator.Apply(
		validator.Required("token", token),
		validator.Required("password", newPassword),
		validator.Equal("confirmPassword", confirmPassword, newPassword),
	); err != nil {
		return err
	}

	found, err := s.repo.GetUserByResetToken(ctx, hashToken(token))
	if errors.Is(err, ErrUserNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return s.internal(ctx, "failed to load user by reset token", err)
	}

	unlock := s.emailLocks.Lock(found.Email)
	defer unlock()

	// Re-read under the lock so a token is consumed only once.
	user, err := s.repo.GetUserByID(ctx, found.ID)
	if err != nil {
		return s.internal(ctx, "failed to load user", err)
	}
	if user.PasswordResetToken == "" || user.PasswordResetToken != hashToken(token) {
		return ErrInvalidToken
	}

	now := s.clock.Now()
	if user.PasswordResetExpiry == nil || !now.Before(*user.PasswordResetExpiry) {
		user.PasswordResetToken = ""
		user.PasswordResetExpiry = nil
		if err := s.repo.PutUser(ctx, user); err != nil {
			return s.internal(ctx, "failed to clear expired reset token", err)
		}
		return ErrInvalidToken
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrWeakPassword) {
			return err
		}
		return s.internal(ctx, "failed to hash password", err)
	}

	user.PasswordHash = hash
	user.PasswordResetToken = ""
	user.PasswordResetExpiry = nil
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.UpdatedAt = now
	if err := s.repo.PutUser(ctx, user); err != nil {
		return s.internal(ctx, "failed to update password", err)
	}

	if _, err := s.repo.DeleteSessionsForUser(ctx, user.ID); err != nil {
		return s.internal(ctx, "failed to revoke sessions", err)
	}
	s.resetLimit(ctx, s.limiters.Login, user.Email)

	s.logger.InfoContext(ctx, "password reset completed",
		logger.Component("auth"),
		logger.Event("password_reset"),
		logger.UserID(user.ID),
	)
	return nil
}

// ChangePassword replaces the password of a signed-in user after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	if err := validator.Apply(
		validator.Required("currentPassword", current),
		validator.Required("password", newPassword),
	); err != nil {
		return err
	}

	found, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return s.internal(ctx, "failed to load user", err)
	}

	unlock := s.emailLocks.Lock(found.Email)
	defer unlock()

	user, err := s.verifyCredentials(ctx, found.Email, current)
	if err != nil {
		return err
	}

	if err := validator.Apply(validator.Custom("password",
		func() bool { return newPassword != current },
		"new password must differ from the current one",
		"validation.password.unchanged",
	)); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrWeakPassword) {
			return err
		}
		return s.internal(ctx, "failed to hash password", err)
	}

	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()
	if err := s.repo.PutUser(ctx, user); err != nil {
		return s.internal(ctx, "failed to update password", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		logger.Component("auth"),
		logger.UserID(user.ID),
	)
	return nil
}
