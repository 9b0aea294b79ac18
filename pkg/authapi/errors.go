package authapi

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/binder"
	"github.com/dmitrymomot/inspectauth/pkg/logger"
	"github.com/dmitrymomot/inspectauth/pkg/oauth"
	"github.com/dmitrymomot/inspectauth/pkg/password"
	"github.com/dmitrymomot/inspectauth/pkg/validator"
)

var errMalformedForm = errors.New("authapi: malformed form body")

// classify maps a service error to a status, a stable code and a message
// safe to show to the caller.
func classify(err error) (int, string, string) {
	switch {
	case validator.IsValidationError(err):
		return http.StatusBadRequest, "validation_error", "Some fields are invalid."
	case errors.Is(err, password.ErrWeakPassword):
		return http.StatusBadRequest, "weak_password", "Password does not meet the strength requirements."
	case errors.Is(err, binder.ErrMissingContentType), errors.Is(err, binder.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type", "Expected an application/json body."
	case errors.Is(err, binder.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, "body_too_large", "Request body is too large."
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, errMalformedForm):
		return http.StatusBadRequest, "bad_request", "Request body is malformed."

	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Invalid email or password."
	case errors.Is(err, auth.ErrTokenReuseDetected):
		return http.StatusUnauthorized, "token_reuse_detected", "Session revoked. Please sign in again."
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "Token is invalid or expired."

	case errors.Is(err, auth.ErrAccountInactive):
		return http.StatusForbidden, "account_inactive", "This account has been deactivated."
	case errors.Is(err, auth.ErrUnverifiedEmail):
		return http.StatusForbidden, "unverified_email", "The provider did not verify this email address."
	case errors.Is(err, oauth.ErrCSRF), errors.Is(err, oauth.ErrPKCE):
		return http.StatusForbidden, "invalid_state", "Sign-in request expired or was tampered with. Please try again."

	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, oauth.ErrUnknownProvider):
		return http.StatusNotFound, "not_found", "Not found."

	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return http.StatusConflict, "email_exists", "An account with this email already exists."
	case errors.Is(err, auth.ErrUseProvider):
		return http.StatusConflict, "use_provider", "This email is registered with another sign-in method."

	case errors.Is(err, auth.ErrAccountLocked):
		return http.StatusLocked, "account_locked", "Account temporarily locked after too many failed attempts."
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", "Too many attempts. Please try again later."

	case errors.Is(err, oauth.ErrProvider), errors.Is(err, oauth.ErrMissingEmail):
		return http.StatusBadGateway, "provider_error", "The sign-in provider could not complete the request."
	}
	return http.StatusInternalServerError, "internal_error", "Something went wrong."
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	detail := &ErrorDetail{Code: code, Message: msg}
	var meta map[string]any

	if ve := validator.ExtractValidationErrors(err); ve != nil {
		detail.Details = ve.ByField()
	}
	var weak *password.WeakPasswordError
	if errors.As(err, &weak) {
		msgs := make([]string, 0, len(weak.Violations))
		for _, v := range weak.Violations {
			msgs = append(msgs, v.Error())
		}
		detail.Details = map[string][]string{"password": msgs}
	}

	var rl *auth.RateLimitError
	if errors.As(err, &rl) {
		h.setRetryAfter(w, rl.ResetAt)
	}
	var locked *auth.LockedError
	if errors.As(err, &locked) {
		h.setRetryAfter(w, locked.Until)
	}
	var conflict *auth.ProviderConflictError
	if errors.As(err, &conflict) {
		meta = map[string]any{"provider": conflict.Provider}
	}

	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		logger.Component("authapi"),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		logger.Error(err),
	)

	writeJSON(w, status, Envelope{Error: detail, Meta: meta})
}

// setRetryAfter writes whole seconds until t, rounded up.
func (h *Handler) setRetryAfter(w http.ResponseWriter, t time.Time) {
	d := t.Sub(h.clock.Now())
	if d <= 0 {
		return
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
}
