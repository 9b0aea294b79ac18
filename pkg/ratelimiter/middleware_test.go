package ratelimiter_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Window:        time.Minute,
		MaxAttempts:   2,
		BlockDuration: time.Minute,
	}, ratelimiter.WithClock(clock))
	require.NoError(t, err)

	status := http.StatusUnauthorized
	handler := ratelimiter.Middleware(l, func(r *http.Request) string {
		return r.Header.Get("X-Test-IP")
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		if ip != "" {
			req.Header.Set("X-Test-IP", ip)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Two failed responses use up the budget.
	assert.Equal(t, http.StatusUnauthorized, do("1.1.1.1").Code)
	assert.Equal(t, http.StatusUnauthorized, do("1.1.1.1").Code)

	rec := do("1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other keys are unaffected, empty keys pass through.
	assert.Equal(t, http.StatusUnauthorized, do("2.2.2.2").Code)
	assert.Equal(t, http.StatusUnauthorized, do("").Code)

	// Successful responses never consume the budget.
	status = http.StatusOK
	for range 5 {
		assert.Equal(t, http.StatusOK, do("3.3.3.3").Code)
	}
}

func TestMiddleware_ConcurrentBurst(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Window:        time.Minute,
		MaxAttempts:   2,
		BlockDuration: time.Minute,
	}, ratelimiter.WithClock(clock))
	require.NoError(t, err)

	var reached, rejected atomic.Int32
	release := make(chan struct{})
	handler := ratelimiter.Middleware(l, func(*http.Request) string {
		return "ip:198.51.100.1"
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached.Add(1)
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	}))

	const burst = 20
	var wg sync.WaitGroup
	for range burst {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
			if rec.Code == http.StatusTooManyRequests {
				rejected.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool {
		return reached.Load()+rejected.Load() == burst
	}, 2*time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), reached.Load())
	assert.Equal(t, int32(burst-2), rejected.Load())

	// Both in-flight attempts failed, so the key is now blocked.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestMiddleware_PanicCountsAsFailure(t *testing.T) {
	t.Parallel()
	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Window:        time.Minute,
		MaxAttempts:   1,
		BlockDuration: time.Minute,
	}, ratelimiter.WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)

	handler := ratelimiter.Middleware(l, func(*http.Request) string {
		return "ip:198.51.100.2"
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	assert.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMiddleware_CustomHandlers(t *testing.T) {
	t.Parallel()
	l, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Window:        time.Minute,
		MaxAttempts:   1,
		BlockDuration: time.Minute,
	}, ratelimiter.WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)

	var got ratelimiter.Result
	handler := ratelimiter.Middleware(l, func(*http.Request) string { return "k" },
		ratelimiter.WithRejectHandler(func(w http.ResponseWriter, _ *http.Request, res ratelimiter.Result) {
			got = res
			w.WriteHeader(http.StatusTeapot)
		}),
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, got.Blocked)
}
