package pgstore_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/auth/pgstore"
	"github.com/dmitrymomot/inspectauth/pkg/pg"
)

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := pgstore.Migrations.ReadDir(pgstore.MigrationsDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "00001_create_users.sql", entries[0].Name())
	assert.Equal(t, "00002_create_sessions.sql", entries[1].Name())
}

// Runs against a real database when PG_TEST_CONN_URL is set.
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_TEST_CONN_URL")
	if dsn == "" {
		t.Skip("PG_TEST_CONN_URL not set")
	}

	ctx := context.Background()
	cfg := pg.Config{ConnectionString: dsn, RetryAttempts: 1, MigrationsTable: "auth_schema_migrations_test"}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, pg.Migrate(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, log))

	store := pgstore.New(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	email := "pg-" + uuid.NewString() + "@example.com"

	u := &auth.User{
		ID:                     uuid.New(),
		Email:                  email,
		Name:                   "Pg User",
		Role:                   auth.RoleInspector,
		PasswordHash:           "hash",
		Provider:               auth.ProviderEmail,
		IsActive:               true,
		EmailVerificationToken: "digest-" + uuid.NewString(),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.ErrorIs(t, store.CreateUser(ctx, &auth.User{ID: uuid.New(), Email: email, Role: auth.RoleTenant, Provider: auth.ProviderEmail, CreatedAt: now, UpdatedAt: now}), auth.ErrEmailAlreadyExists)

	got, err := store.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, auth.RoleInspector, got.Role)
	assert.Nil(t, got.LockedUntil)

	got, err = store.GetUserByVerificationToken(ctx, u.EmailVerificationToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	lock := now.Add(time.Hour)
	got.LockedUntil = &lock
	got.FailedLoginAttempts = 10
	require.NoError(t, store.PutUser(ctx, got))

	got, err = store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LockedUntil)
	assert.True(t, lock.Equal(*got.LockedUntil))
	assert.Equal(t, 10, got.FailedLoginAttempts)

	_, err = store.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	// The lock set above is active, so failures count but keep it.
	failed, err := store.RecordFailedLogin(ctx, u.ID, now, 10, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 11, failed.Attempts)
	require.NotNil(t, failed.LockedUntil)
	assert.True(t, lock.Equal(*failed.LockedUntil))

	// Once the lock expired the count restarts.
	later := lock.Add(time.Minute)
	failed, err = store.RecordFailedLogin(ctx, u.ID, later, 2, later.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, failed.Attempts)
	assert.Nil(t, failed.LockedUntil)

	failed, err = store.RecordFailedLogin(ctx, u.ID, later, 2, later.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, failed.Attempts)
	require.NotNil(t, failed.LockedUntil)
	assert.True(t, later.Add(time.Hour).Equal(*failed.LockedUntil))

	_, err = store.RecordFailedLogin(ctx, uuid.New(), now, 10, now)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	sess := &auth.Session{ID: uuid.NewString(), UserID: u.ID, TokenFamily: "f1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.PutSession(ctx, sess))
	sess.TokenFamily = "f2"
	require.NoError(t, store.PutSession(ctx, sess))

	gotSess, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "f2", gotSess.TokenFamily)

	ok, err := store.RotateSession(ctx, sess.ID, "f2", "f3", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.RotateSession(ctx, sess.ID, "f2", "f4", now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	gotSess, err = store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "f3", gotSess.TokenFamily)
	assert.True(t, now.Add(2*time.Hour).Equal(gotSess.ExpiresAt))

	n, err := store.DeleteSessionsForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}
