package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/jwt"
	"github.com/dmitrymomot/inspectauth/pkg/password"
	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
)

const (
	testSecret   = "test-secret-that-is-at-least-32-bytes"
	testPassword = "Str0ng!Pass"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	return m.Called(ctx, to, name, token).Error(0)
}

func (m *mockNotifier) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return m.Called(ctx, to, name, token).Error(0)
}

type testEnv struct {
	svc      *auth.Service
	repo     *auth.MemoryRepository
	tokens   *jwt.Service
	clock    *clockwork.FakeClock
	notifier *mockNotifier
	limiters auth.Limiters
}

type envConfig struct {
	loginMax   int // 0 disables the login limiter
	opts       []auth.Option
	noNotifier bool
	// wrapRepo decorates the memory repository handed to the service.
	wrapRepo func(*auth.MemoryRepository) auth.Repository
}

func newEnv(t *testing.T, ec envConfig) *testEnv {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	passwords, err := password.New(password.Config{}, password.WithCost(4))
	require.NoError(t, err)
	tokens, err := jwt.New(jwt.Config{Secret: testSecret, Issuer: "test", Audience: "test-api"}, jwt.WithClock(clock))
	require.NoError(t, err)

	store := ratelimiter.NewMemoryStore()
	newLimiter := func(prefix string, max int) *ratelimiter.Limiter {
		l, err := ratelimiter.New(store, ratelimiter.Config{
			Window:        15 * time.Minute,
			MaxAttempts:   max,
			BlockDuration: 15 * time.Minute,
		}, ratelimiter.WithClock(clock), ratelimiter.WithPrefix(prefix))
		require.NoError(t, err)
		return l
	}

	limiters := auth.Limiters{
		Registration:  newLimiter("register:", 3),
		PasswordReset: newLimiter("reset:", 3),
	}
	if ec.loginMax > 0 {
		limiters.Login = newLimiter("login:", ec.loginMax)
	}

	n := &mockNotifier{}
	n.On("SendVerificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	repo := auth.NewMemoryRepository()
	opts := []auth.Option{auth.WithClock(clock)}
	if !ec.noNotifier {
		opts = append(opts, auth.WithNotifier(n))
	}
	opts = append(opts, ec.opts...)

	var svcRepo auth.Repository = repo
	if ec.wrapRepo != nil {
		svcRepo = ec.wrapRepo(repo)
	}
	svc, err := auth.NewService(svcRepo, passwords, tokens, limiters, opts...)
	require.NoError(t, err)

	return &testEnv{
		svc:      svc,
		repo:     repo,
		tokens:   tokens,
		clock:    clock,
		notifier: n,
		limiters: limiters,
	}
}

func (e *testEnv) register(t *testing.T, email string) *auth.RegisterResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), auth.RegisterInput{
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
		Name:            "A B",
		Role:            "tenant",
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) login(t *testing.T, email string) *auth.LoginResult {
	t.Helper()
	res, err := e.svc.Login(context.Background(), auth.LoginInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	return res
}

// racingRepo lets another writer rotate the session right before the
// service's own swap, as a second instance sharing the database would.
type racingRepo struct {
	*auth.MemoryRepository
	once sync.Once
}

func (r *racingRepo) RotateSession(ctx context.Context, id, oldFamily, newFamily string, expiresAt time.Time) (bool, error) {
	r.once.Do(func() {
		_, _ = r.MemoryRepository.RotateSession(ctx, id, oldFamily, "rotated-elsewhere", expiresAt)
	})
	return r.MemoryRepository.RotateSession(ctx, id, oldFamily, newFamily, expiresAt)
}

func mustPasswords(t *testing.T) *password.Service {
	t.Helper()
	p, err := password.New(password.Config{}, password.WithCost(4))
	require.NoError(t, err)
	return p
}
