package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/httpserver"
	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

func waitAddr(t *testing.T, srv *httpserver.Server) string {
	t.Helper()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 10*time.Millisecond)
	return srv.Addr().String()
}

func TestServer_RunAndCancel(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: 100 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
	}()

	resp, err := http.Get("http://" + waitAddr(t, srv))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		require.Fail(t, "run did not return")
	}
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestServer_StartErrors(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.Config{Addr: ":invalid"})
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)

	running := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = running.Run(ctx, nil) }()
	waitAddr(t, running)

	err = running.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	h := httpserver.ReadinessHandler(logger.Discard(), time.Second, map[string]httpserver.Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("down") },
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "fail"}, body.Checks)
	assert.NotContains(t, w.Body.String(), "down")

	ok := httpserver.ReadinessHandler(logger.Discard(), time.Second, nil)
	w = httptest.NewRecorder()
	ok.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	httpserver.LivenessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}
