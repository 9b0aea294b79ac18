package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/inspectauth/pkg/jwt"
	"github.com/dmitrymomot/inspectauth/pkg/logger"
	"github.com/dmitrymomot/inspectauth/pkg/oauth"
	"github.com/dmitrymomot/inspectauth/pkg/sanitizer"
	"github.com/dmitrymomot/inspectauth/pkg/validator"
)

// OAuthClient runs the provider side of a social sign-in.
type OAuthClient interface {
	InitiateLogin(ctx context.Context, provider string) (*oauth.AuthRequest, error)
	HandleCallback(ctx context.Context, provider, code, state string) (*oauth.UserInfo, error)
}

// SocialResult is the outcome of a completed provider callback. Either Login
// is set, or NeedsAccountLinking is true and the caller must collect the
// account password and call LinkSocialAccount with LinkToken.
type SocialResult struct {
	Login     *LoginResult `json:"login,omitempty"`
	IsNewUser bool         `json:"isNewUser,omitempty"`

	NeedsAccountLinking bool   `json:"needsAccountLinking,omitempty"`
	ExistingEmail       string `json:"existingEmail,omitempty"`
	Provider            string `json:"provider,omitempty"`
	LinkToken           string `json:"linkToken,omitempty"`
}

// SocialService signs users in through Google, Microsoft and Apple.
type SocialService struct {
	auth   *Service
	client OAuthClient
	logger *slog.Logger
}

// SocialOption configures SocialService.
type SocialOption func(*SocialService)

// WithSocialLogger sets the logger used by SocialService.
func WithSocialLogger(l *slog.Logger) SocialOption {
	return func(s *SocialService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSocialService creates a social sign-in service sharing sessions,
// lockouts and limiters with svc.
func NewSocialService(svc *Service, client OAuthClient, opts ...SocialOption) *SocialService {
	s := &SocialService{
		auth:   svc,
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginLogin returns the provider URL to redirect the user to.
func (s *SocialService) BeginLogin(ctx context.Context, provider string) (*oauth.AuthRequest, error) {
	return s.client.InitiateLogin(ctx, provider)
}

// CompleteLogin finishes a provider callback. OAuth failures are returned as
// the oauth package's errors.
func (s *SocialService) CompleteLogin(ctx context.Context, provider, code, state string) (*SocialResult, error) {
	info, err := s.client.HandleCallback(ctx, provider, code, state)
	if err != nil {
		return nil, err
	}

	email := sanitizer.NormalizeEmail(info.Email)
	if email == "" {
		return nil, oauth.ErrMissingEmail
	}

	unlock := s.auth.emailLocks.Lock(email)
	defer unlock()

	user, err := s.auth.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return s.createSocialUser(ctx, info, email)
	}
	if err != nil {
		return nil, s.auth.internal(ctx, "failed to load user", err)
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if now := s.auth.clock.Now(); user.IsLocked(now) {
		return nil, &LockedError{Until: *user.LockedUntil}
	}

	switch {
	case user.SocialProviderID == "" && user.Provider == ProviderEmail:
		return s.requireLinking(ctx, user, info)

	case user.SocialProviderID == info.Provider && user.SocialProviderUserID == info.ID:
		user.LastLogin = timePtr(s.auth.clock.Now())
		user.UpdatedAt = *user.LastLogin
		if user.Picture == "" {
			user.Picture = info.Picture
		}
		if err := s.auth.repo.PutUser(ctx, user); err != nil {
			return nil, s.auth.internal(ctx, "failed to record login", err)
		}
		res, err := s.auth.completeLogin(ctx, user)
		if err != nil {
			return nil, err
		}
		return &SocialResult{Login: res}, nil
	}

	owner := user.SocialProviderID
	if owner == "" {
		owner = user.Provider
	}
	s.logger.WarnContext(ctx, "social login for email owned by another identity",
		logger.Component("auth"),
		logger.Event("provider_conflict"),
		logger.Provider(info.Provider),
		logger.UserID(user.ID),
	)
	return nil, &ProviderConflictError{Provider: owner}
}

func (s *SocialService) createSocialUser(ctx context.Context, info *oauth.UserInfo, email string) (*SocialResult, error) {
	if !info.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	now := s.auth.clock.Now()
	user := &User{
		ID:                   uuid.New(),
		Email:                email,
		Name:                 displayName(info, email),
		Role:                 DefaultSocialRole,
		Provider:             info.Provider,
		EmailVerified:        true,
		IsActive:             true,
		LastLogin:            timePtr(now),
		SocialProviderID:     info.Provider,
		SocialProviderUserID: info.ID,
		Picture:              info.Picture,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.auth.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, s.auth.internal(ctx, "failed to create social user", err)
	}

	s.logger.InfoContext(ctx, "social user created",
		logger.Component("auth"),
		logger.UserID(user.ID),
		logger.Provider(info.Provider),
	)
	s.auth.runHook("afterRegister", s.auth.afterRegister, user)

	res, err := s.auth.completeLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	return &SocialResult{Login: res, IsNewUser: true}, nil
}

func (s *SocialService) requireLinking(ctx context.Context, user *User, info *oauth.UserInfo) (*SocialResult, error) {
	tok, err := s.auth.tokens.GenerateLinkToken(jwt.LinkPayload{
		Provider:       info.Provider,
		ProviderUserID: info.ID,
		Email:          user.Email,
		Name:           info.Name,
		Picture:        info.Picture,
	})
	if err != nil {
		return nil, s.auth.internal(ctx, "failed to sign link token", err)
	}

	s.logger.InfoContext(ctx, "social login requires account linking",
		logger.Component("auth"),
		logger.UserID(user.ID),
		logger.Provider(info.Provider),
	)
	return &SocialResult{
		NeedsAccountLinking: true,
		ExistingEmail:       user.Email,
		Provider:            info.Provider,
		LinkToken:           tok,
	}, nil
}

// LinkSocialAccount attaches the provider identity in linkToken to the
// password account it was issued for and signs the user in. The password
// check goes through the same limiter and lockout as Login.
func (s *SocialService) LinkSocialAccount(ctx context.Context, linkToken, password string) (*LoginResult, error) {
	if err := validator.Apply(validator.Required("password", password)); err != nil {
		return nil, err
	}

	claims, err := s.auth.tokens.VerifyLinkToken(linkToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	link := claims.Payload()

	if err := s.auth.checkLimit(ctx, s.auth.limiters.Login, "link", link.Email); err != nil {
		return nil, err
	}

	unlock := s.auth.emailLocks.Lock(link.Email)
	defer unlock()

	user, err := s.auth.verifyCredentials(ctx, link.Email, password)
	if err != nil {
		return nil, err
	}

	if user.SocialProviderID != "" &&
		(user.SocialProviderID != link.Provider || user.SocialProviderUserID != link.ProviderUserID) {
		return nil, &ProviderConflictError{Provider: user.SocialProviderID}
	}

	now := s.auth.clock.Now()
	user.SocialProviderID = link.Provider
	user.SocialProviderUserID = link.ProviderUserID
	user.EmailVerified = true
	user.EmailVerificationToken = ""
	user.EmailVerificationExpiry = nil
	if user.Picture == "" {
		user.Picture = link.Picture
	}
	user.LastLogin = timePtr(now)
	user.UpdatedAt = now
	if err := s.auth.repo.PutUser(ctx, user); err != nil {
		return nil, s.auth.internal(ctx, "failed to link social account", err)
	}
	s.auth.resetLimit(ctx, s.auth.limiters.Login, link.Email)

	s.logger.InfoContext(ctx, "social account linked",
		logger.Component("auth"),
		logger.Event("account_linked"),
		logger.UserID(user.ID),
		logger.Provider(link.Provider),
	)
	return s.auth.completeLogin(ctx, user)
}

func displayName(info *oauth.UserInfo, email string) string {
	name := info.Name
	if name == "" {
		name = strings.TrimSpace(info.GivenName + " " + info.FamilyName)
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return sanitizer.Text(sanitizer.NormalizeName(name))
}
