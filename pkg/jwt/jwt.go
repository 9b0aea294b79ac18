package jwt

import (
	"errors"
	"io"
	"log/slog"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

// Service issues and verifies HS256-signed tokens.
// Verification is stateless and safe for concurrent use.
type Service struct {
	cfg    Config
	key    []byte
	clock  clockwork.Clock
	logger *slog.Logger
	parser *gojwt.Parser
}

// Option configures Service.
type Option func(*Service)

// WithClock sets the time source for issuing and verifying tokens.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a token service. The secret must be at least 32 bytes and
// issuer and audience must be set.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	s := &Service{
		cfg:    cfg,
		key:    []byte(cfg.Secret),
		clock:  clockwork.NewRealClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(cfg.Issuer),
		gojwt.WithAudience(cfg.Audience),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuedAt(),
		gojwt.WithTimeFunc(s.clock.Now),
	)

	return s, nil
}

// AccessTTL returns the default access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// RefreshTTL returns the default refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// GenerateAccessToken signs an access token. A non-positive ttl uses the
// configured default.
func (s *Service) GenerateAccessToken(p AccessPayload, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.AccessTTL
	}
	return s.sign(AccessClaims{
		UserID:           p.UserID,
		Email:            p.Email,
		Role:             p.Role,
		SessionID:        p.SessionID,
		TokenType:        TypeAccess,
		RegisteredClaims: s.registered(p.UserID, ttl),
	})
}

// GenerateRefreshToken signs a refresh token. A non-positive ttl uses the
// configured default.
func (s *Service) GenerateRefreshToken(p RefreshPayload, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.cfg.RefreshTTL
	}
	return s.sign(RefreshClaims{
		UserID:           p.UserID,
		SessionID:        p.SessionID,
		TokenFamily:      p.TokenFamily,
		TokenType:        TypeRefresh,
		RegisteredClaims: s.registered(p.UserID, ttl),
	})
}

// GenerateLinkToken signs a short-lived token carrying a verified social
// identity until the account owner confirms the link.
func (s *Service) GenerateLinkToken(p LinkPayload) (string, error) {
	return s.sign(LinkClaims{
		Provider:         p.Provider,
		ProviderUserID:   p.ProviderUserID,
		Email:            p.Email,
		Name:             p.Name,
		Picture:          p.Picture,
		TokenType:        TypeLink,
		RegisteredClaims: s.registered(p.Email, s.cfg.LinkTTL),
	})
}

// VerifyAccessToken parses and validates an access token.
func (s *Service) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token. The caller must
// still check the token family against the stored session.
func (s *Service) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyLinkToken parses and validates an account-link token.
func (s *Service) VerifyLinkToken(token string) (*LinkClaims, error) {
	claims := &LinkClaims{}
	if err := s.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// NewSessionID returns a random session identifier.
func NewSessionID() string { return uuid.NewString() }

// NewTokenFamily returns a random refresh lineage identifier.
func NewTokenFamily() string { return uuid.NewString() }

func (s *Service) registered(subject string, ttl time.Duration) gojwt.RegisteredClaims {
	now := s.clock.Now()
	return gojwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		Audience:  gojwt.ClaimStrings{s.cfg.Audience},
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *Service) sign(claims gojwt.Claims) (string, error) {
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", errors.Join(ErrSigningFailed, err)
	}
	return signed, nil
}

// parse collapses every failure into ErrInvalidToken so callers cannot tell
// an expired token from a forged one.
func (s *Service) parse(token string, claims gojwt.Claims) error {
	if token == "" {
		return ErrInvalidToken
	}
	_, err := s.parser.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		s.logger.Debug("token rejected",
			logger.Component("jwt"),
			logger.Error(err),
		)
		return ErrInvalidToken
	}
	return nil
}
