// Package pgstore persists auth users and sessions in PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/pg"
)

// Migrations holds the schema, applied with pg.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements auth.Repository.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, email, name, phone, role, password_hash, provider,
	email_verified, is_active, failed_login_attempts, locked_until,
	email_verification_token, email_verification_expiry,
	password_reset_token, password_reset_expiry, last_login,
	social_provider_id, social_provider_user_id, picture, created_at, updated_at`

func userArgs(u *auth.User) []any {
	return []any{
		u.ID, u.Email, u.Name, u.Phone, string(u.Role), u.PasswordHash, u.Provider,
		u.EmailVerified, u.IsActive, u.FailedLoginAttempts, u.LockedUntil,
		u.EmailVerificationToken, u.EmailVerificationExpiry,
		u.PasswordResetToken, u.PasswordResetExpiry, u.LastLogin,
		u.SocialProviderID, u.SocialProviderUserID, u.Picture, u.CreatedAt, u.UpdatedAt,
	}
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Phone, &role, &u.PasswordHash, &u.Provider,
		&u.EmailVerified, &u.IsActive, &u.FailedLoginAttempts, &u.LockedUntil,
		&u.EmailVerificationToken, &u.EmailVerificationExpiry,
		&u.PasswordResetToken, &u.PasswordResetExpiry, &u.LastLogin,
		&u.SocialProviderID, &u.SocialProviderUserID, &u.Picture, &u.CreatedAt, &u.UpdatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan user: %w", err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		userArgs(u)...)
	if pg.IsDuplicateKeyError(err) {
		return auth.ErrEmailAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("pgstore: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) GetUserByVerificationToken(ctx context.Context, tokenHash string) (*auth.User, error) {
	if tokenHash == "" {
		return nil, auth.ErrUserNotFound
	}
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_verification_token = $1`, tokenHash))
}

func (s *Store) GetUserByResetToken(ctx context.Context, tokenHash string) (*auth.User, error) {
	if tokenHash == "" {
		return nil, auth.ErrUserNotFound
	}
	return scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE password_reset_token = $1`, tokenHash))
}

func (s *Store) PutUser(ctx context.Context, u *auth.User) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET
		email = $2, name = $3, phone = $4, role = $5, password_hash = $6, provider = $7,
		email_verified = $8, is_active = $9, failed_login_attempts = $10, locked_until = $11,
		email_verification_token = $12, email_verification_expiry = $13,
		password_reset_token = $14, password_reset_expiry = $15, last_login = $16,
		social_provider_id = $17, social_provider_user_id = $18, picture = $19,
		created_at = $20, updated_at = $21
		WHERE id = $1`, userArgs(u)...)
	if pg.IsDuplicateKeyError(err) {
		return auth.ErrEmailAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("pgstore: update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// RecordFailedLogin updates the counter and lock in one statement so
// concurrent failures on different instances are all counted.
func (s *Store) RecordFailedLogin(ctx context.Context, userID uuid.UUID, now time.Time, maxAttempts int, lockUntil time.Time) (auth.FailedLogin, error) {
	var res auth.FailedLogin
	err := s.db.QueryRow(ctx, `UPDATE users SET
		failed_login_attempts = CASE
			WHEN locked_until <= $2 THEN 1
			ELSE failed_login_attempts + 1
		END,
		locked_until = CASE
			WHEN locked_until > $2 THEN locked_until
			WHEN (CASE WHEN locked_until <= $2 THEN 1 ELSE failed_login_attempts + 1 END) >= $3 THEN $4::timestamptz
			ELSE NULL
		END,
		updated_at = $2
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until`,
		userID, now, maxAttempts, lockUntil).Scan(&res.Attempts, &res.LockedUntil)
	if pg.IsNotFoundError(err) {
		return auth.FailedLogin{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.FailedLogin{}, fmt.Errorf("pgstore: record failed login: %w", err)
	}
	return res, nil
}

func (s *Store) PutSession(ctx context.Context, sess *auth.Session) error {
	_, err := s.db.Exec(ctx, `INSERT INTO sessions (id, user_id, token_family, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET token_family = EXCLUDED.token_family, expires_at = EXCLUDED.expires_at`,
		sess.ID, sess.UserID, sess.TokenFamily, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("pgstore: put session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*auth.Session, error) {
	var sess auth.Session
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, token_family, created_at, expires_at FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.TokenFamily, &sess.CreatedAt, &sess.ExpiresAt)
	if pg.IsNotFoundError(err) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get session: %w", err)
	}
	return &sess, nil
}

// RotateSession is a compare-and-swap on token_family.
func (s *Store) RotateSession(ctx context.Context, id, oldFamily, newFamily string, expiresAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE sessions SET token_family = $3, expires_at = $4 WHERE id = $1 AND token_family = $2`,
		id, oldFamily, newFamily, expiresAt)
	if err != nil {
		return false, fmt.Errorf("pgstore: rotate session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgstore: delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("pgstore: delete sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpiredSessions removes sessions past their expiry.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("pgstore: delete expired sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var _ auth.Repository = (*Store)(nil)
