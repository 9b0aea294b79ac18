package ratelimiter

import (
	"context"
	"net/http"
	"strconv"
)

// KeyFunc extracts a rate limit key from the request. An empty key skips
// limiting for that request.
type KeyFunc func(r *http.Request) string

// RejectFunc writes the response for a request refused by the limiter.
type RejectFunc func(w http.ResponseWriter, r *http.Request, res Result)

// ErrorFunc writes the response when the limiter store fails.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	reject  RejectFunc
	onError ErrorFunc
}

// WithRejectHandler replaces the default plain-text 429 response.
func WithRejectHandler(fn RejectFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.reject = fn
		}
	}
}

// WithErrorHandler replaces the default plain-text 500 response.
func WithErrorHandler(fn ErrorFunc) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// Middleware throttles failing requests per key. Every request reserves an
// attempt before the handler runs, so a concurrent burst cannot get past the
// budget. The reservation is settled by the response: status 400 or above
// (or a panic) counts as a failed attempt, anything else is released.
func Middleware(l *Limiter, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		reject: func(w http.ResponseWriter, _ *http.Request, res Result) {
			if retry := int(res.RetryAfter(l.clock.Now()).Seconds()); retry > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retry))
			}
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		},
		onError: func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, reservation, err := l.Reserve(r.Context(), key)
			if err != nil {
				cfg.onError(w, r, err)
				return
			}
			if !res.Allowed {
				cfg.reject(w, r, res)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			success := false
			defer func() {
				// Settling uses a context that outlives a cancelled request.
				_ = l.Settle(context.WithoutCancel(r.Context()), reservation, success)
			}()

			next.ServeHTTP(rec, r)
			success = rec.status < http.StatusBadRequest
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
