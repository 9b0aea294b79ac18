package authapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/authapi"
	"github.com/dmitrymomot/inspectauth/pkg/jwt"
	"github.com/dmitrymomot/inspectauth/pkg/oauth"
	"github.com/dmitrymomot/inspectauth/pkg/password"
	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
)

const testPassword = "Str0ng!Pass"

// captureNotifier keeps the last raw token sent per address.
type captureNotifier struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func (n *captureNotifier) SendVerificationEmail(_ context.Context, to, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verify[to] = token
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, to, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[to] = token
	return nil
}

func (n *captureNotifier) resetToken(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset[to]
}

func (n *captureNotifier) verifyToken(to string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.verify[to]
}

type apiEnv struct {
	srv      http.Handler
	clock    *clockwork.FakeClock
	notifier *captureNotifier
}

type apiConfig struct {
	loginMax int // 0 disables the per-email login limiter
	ipMax    int // 0 disables the per-IP limiter
}

func newAPI(t *testing.T, cfg apiConfig) *apiEnv {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	passwords, err := password.New(password.Config{}, password.WithCost(4))
	require.NoError(t, err)
	tokens, err := jwt.New(jwt.Config{
		Secret:   "test-secret-that-is-at-least-32-bytes",
		Issuer:   "test",
		Audience: "test-api",
	}, jwt.WithClock(clock))
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
		Registration:  newLimiter("register:", 5),
		PasswordReset: newLimiter("reset:", 5),
	}
	if cfg.loginMax > 0 {
		limiters.Login = newLimiter("login:", cfg.loginMax)
	}

	notifier := &captureNotifier{verify: map[string]string{}, reset: map[string]string{}}
	svc, err := auth.NewService(auth.NewMemoryRepository(), passwords, tokens, limiters,
		auth.WithClock(clock),
		auth.WithNotifier(notifier),
		auth.WithRefreshRotation(),
	)
	require.NoError(t, err)

	client, err := oauth.New(oauth.Config{DemoMode: true}, oauth.WithClock(clock))
	require.NoError(t, err)

	opts := []authapi.Option{
		authapi.WithClock(clock),
		authapi.WithSocial(auth.NewSocialService(svc, client)),
	}
	if cfg.ipMax > 0 {
		opts = append(opts, authapi.WithIPLimiter(newLimiter("ip:", cfg.ipMax)))
	}

	return &apiEnv{
		srv:      authapi.New(svc, opts...).Routes(),
		clock:    clock,
		notifier: notifier,
	}
}

type response struct {
	Code   int
	Header http.Header
	Body   struct {
		Data  json.RawMessage      `json:"data"`
		Meta  map[string]any       `json:"meta"`
		Error *authapi.ErrorDetail `json:"error"`
	}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any, bearer string) response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	req.RemoteAddr = "192.0.2.10:4321"

	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)

	res := response{Code: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.Body))
	}
	return res
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Data, v))
}

func registerBody(email string) map[string]string {
	return map[string]string{
		"email":           email,
		"password":        testPassword,
		"confirmPassword": testPassword,
		"name":            "Jane Doe",
		"role":            "tenant",
	}
}

func (e *apiEnv) registerAndLogin(t *testing.T, email string) auth.LoginResult {
	t.Helper()

	res := e.do(t, http.MethodPost, "/register", registerBody(email), "")
	require.Equal(t, http.StatusCreated, res.Code)

	res = e.do(t, http.MethodPost, "/login", map[string]string{"email": email, "password": testPassword}, "")
	require.Equal(t, http.StatusOK, res.Code)

	var login auth.LoginResult
	res.decode(t, &login)
	return login
}
