package authapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/clientip"
	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
	"github.com/dmitrymomot/inspectauth/pkg/requestid"
)

// Handler serves the auth JSON API.
type Handler struct {
	auth      *auth.Service
	social    *auth.SocialService
	ipLimiter *ratelimiter.Limiter
	clock     clockwork.Clock
	logger    *slog.Logger
}

// Option configures Handler.
type Option func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithClock sets the time source used for Retry-After.
func WithClock(c clockwork.Clock) Option {
	return func(h *Handler) {
		if c != nil {
			h.clock = c
		}
	}
}

// WithSocial enables the /oauth routes.
func WithSocial(s *auth.SocialService) Option {
	return func(h *Handler) {
		h.social = s
	}
}

// WithIPLimiter throttles failing credential requests per client IP, on top
// of the per-email limits inside auth.Service.
func WithIPLimiter(l *ratelimiter.Limiter) Option {
	return func(h *Handler) {
		h.ipLimiter = l
	}
}

func New(svc *auth.Service, opts ...Option) *Handler {
	h := &Handler{
		auth:   svc,
		clock:  clockwork.NewRealClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router. Mount it under any prefix.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		if h.ipLimiter != nil {
			r.Use(ratelimiter.Middleware(h.ipLimiter, clientIPKey,
				ratelimiter.WithRejectHandler(h.rejectLimited),
				ratelimiter.WithErrorHandler(h.writeError),
			))
		}
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh", h.refresh)
		r.Post("/verify-email", h.verifyEmail)
		r.Post("/password/reset", h.completePasswordReset)
		if h.social != nil {
			r.Post("/oauth/link", h.linkSocial)
		}
	})

	r.Post("/logout", h.logout)
	r.Post("/verify-email/resend", h.resendVerification)
	r.Post("/password/forgot", h.forgotPassword)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/me", h.me)
		r.Delete("/me", h.deactivate)
		r.Post("/logout/all", h.logoutAll)
		r.Post("/password/change", h.changePassword)
	})

	if h.social != nil {
		r.Get("/oauth/{provider}", h.beginOAuth)
		r.Get("/oauth/{provider}/callback", h.oauthCallback)
		r.Post("/oauth/{provider}/callback", h.oauthCallback)
	}

	return r
}

// rejectLimited renders an IP limiter rejection like any other rate limit.
func (h *Handler) rejectLimited(w http.ResponseWriter, r *http.Request, res ratelimiter.Result) {
	h.writeError(w, r, &auth.RateLimitError{ResetAt: res.ResetAt, Remaining: res.Remaining})
}

func clientIPKey(r *http.Request) string {
	if ip := clientip.GetIPFromContext(r.Context()); ip != "" {
		return "ip:" + ip
	}
	return ""
}
