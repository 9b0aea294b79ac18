package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/inspectauth/pkg/jwt"
	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

const tokenTypeBearer = "Bearer"

// completeLogin opens a session for user and runs the login hook.
func (s *Service) completeLogin(ctx context.Context, user *User) (*LoginResult, error) {
	now := s.clock.Now()
	sess := &Session{
		ID:          jwt.NewSessionID(),
		UserID:      user.ID,
		TokenFamily: jwt.NewTokenFamily(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.tokens.RefreshTTL()),
	}
	if err := s.repo.PutSession(ctx, sess); err != nil {
		return nil, s.internal(ctx, "failed to store session", err)
	}

	access, err := s.accessToken(ctx, user, sess.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.refreshToken(ctx, user.ID, sess)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		logger.Component("auth"),
		logger.UserID(user.ID),
		logger.SessionID(sess.ID),
		logger.Provider(user.Provider),
	)
	s.runHook("afterLogin", s.afterLogin, user)

	return &LoginResult{
		User:      user.Public(),
		SessionID: sess.ID,
		Tokens:    s.pair(access, refresh),
	}, nil
}

// Refresh trades a refresh token for a new access token. A token whose family
// no longer matches its session is treated as stolen: every session of the
// user is revoked and ErrTokenReuseDetected is returned.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	unlock := s.sessionLocks.Lock(claims.SessionID)
	defer unlock()

	sess, err := s.repo.GetSession(ctx, claims.SessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, s.internal(ctx, "failed to load session", err)
	}
	if sess == nil || sess.UserID != userID || sess.TokenFamily != claims.TokenFamily {
		return nil, s.reuseDetected(ctx, userID, claims.SessionID)
	}

	now := s.clock.Now()
	if !now.Before(sess.ExpiresAt) {
		if err := s.repo.DeleteSession(ctx, sess.ID); err != nil {
			return nil, s.internal(ctx, "failed to delete expired session", err)
		}
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, s.internal(ctx, "failed to load user", err)
	}
	if user == nil || !user.IsActive {
		if err := s.repo.DeleteSession(ctx, sess.ID); err != nil {
			return nil, s.internal(ctx, "failed to delete session", err)
		}
		return nil, ErrAccountInactive
	}

	access, err := s.accessToken(ctx, user, sess.ID)
	if err != nil {
		return nil, err
	}

	if !s.rotateRefresh {
		pair := s.pair(access, refreshToken)
		return &pair, nil
	}

	family := jwt.NewTokenFamily()
	expiresAt := now.Add(s.tokens.RefreshTTL())
	rotated, err := s.repo.RotateSession(ctx, sess.ID, claims.TokenFamily, family, expiresAt)
	if err != nil {
		return nil, s.internal(ctx, "failed to rotate session", err)
	}
	if !rotated {
		// Another instance rotated this family between the read and the swap.
		return nil, s.reuseDetected(ctx, userID, claims.SessionID)
	}
	sess.TokenFamily = family
	sess.ExpiresAt = expiresAt
	refresh, err := s.refreshToken(ctx, user.ID, sess)
	if err != nil {
		return nil, err
	}
	pair := s.pair(access, refresh)
	return &pair, nil
}

func (s *Service) reuseDetected(ctx context.Context, userID uuid.UUID, sessionID string) error {
	n, err := s.repo.DeleteSessionsForUser(ctx, userID)
	if err != nil {
		return s.internal(ctx, "failed to revoke sessions after token reuse", err)
	}
	s.logger.WarnContext(ctx, "refresh token reuse detected, all sessions revoked",
		logger.Component("auth"),
		logger.Event("token_reuse"),
		logger.UserID(userID),
		logger.SessionID(sessionID),
		slog.Int("revoked", n),
	)
	return ErrTokenReuseDetected
}

// Logout ends the session the refresh token belongs to. Ending an already
// ended session is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}

	unlock := s.sessionLocks.Lock(claims.SessionID)
	defer unlock()

	sess, err := s.repo.GetSession(ctx, claims.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return s.internal(ctx, "failed to load session", err)
	}
	if sess.UserID.String() != claims.UserID {
		return ErrInvalidToken
	}
	if err := s.repo.DeleteSession(ctx, sess.ID); err != nil {
		return s.internal(ctx, "failed to delete session", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		logger.Component("auth"),
		logger.UserID(sess.UserID),
		logger.SessionID(sess.ID),
	)
	return nil
}

// LogoutAll ends every session of the user.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	n, err := s.repo.DeleteSessionsForUser(ctx, userID)
	if err != nil {
		return s.internal(ctx, "failed to revoke sessions", err)
	}
	s.logger.InfoContext(ctx, "all sessions revoked",
		logger.Component("auth"),
		logger.UserID(userID),
		slog.Int("revoked", n),
	)
	return nil
}

// Authenticate verifies an access token. It does not touch the repository.
func (s *Service) Authenticate(_ context.Context, accessToken string) (*Principal, error) {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Principal{
		UserID:    id,
		Email:     claims.Email,
		Role:      Role(claims.Role),
		SessionID: claims.SessionID,
	}, nil
}

func (s *Service) accessToken(ctx context.Context, user *User, sessionID string) (string, error) {
	tok, err := s.tokens.GenerateAccessToken(jwt.AccessPayload{
		UserID:    user.ID.String(),
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: sessionID,
	}, 0)
	if err != nil {
		return "", s.internal(ctx, "failed to sign access token", err)
	}
	return tok, nil
}

func (s *Service) refreshToken(ctx context.Context, userID uuid.UUID, sess *Session) (string, error) {
	tok, err := s.tokens.GenerateRefreshToken(jwt.RefreshPayload{
		UserID:      userID.String(),
		SessionID:   sess.ID,
		TokenFamily: sess.TokenFamily,
	}, 0)
	if err != nil {
		return "", s.internal(ctx, "failed to sign refresh token", err)
	}
	return tok, nil
}

func (s *Service) pair(access, refresh string) TokenPair {
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}
}
