package jwt

import (
	"net/http"
	"strings"
)

// TokenExtractorFunc extracts a token from an HTTP request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// SkipFunc reports whether a request bypasses token validation.
type SkipFunc func(r *http.Request) bool

// UnauthorizedFunc writes the response for a rejected request.
type UnauthorizedFunc func(w http.ResponseWriter, r *http.Request, err error)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	Service      *Service
	Extractor    TokenExtractorFunc // defaults to BearerTokenExtractor
	Skip         SkipFunc
	Unauthorized UnauthorizedFunc // defaults to a plain 401
}

// Middleware verifies the bearer access token and stores its claims in the
// request context.
func Middleware(service *Service) func(next http.Handler) http.Handler {
	return MiddlewareWithConfig(MiddlewareConfig{Service: service})
}

// MiddlewareWithConfig creates the middleware with custom extraction and
// error handling.
func MiddlewareWithConfig(config MiddlewareConfig) func(next http.Handler) http.Handler {
	if config.Extractor == nil {
		config.Extractor = BearerTokenExtractor
	}
	if config.Unauthorized == nil {
		config.Unauthorized = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skip != nil && config.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := config.Extractor(r)
			if err != nil {
				config.Unauthorized(w, r, err)
				return
			}

			claims, err := config.Service.VerifyAccessToken(token)
			if err != nil {
				config.Unauthorized(w, r, err)
				return
			}

			ctx := SetToken(r.Context(), token)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// CookieTokenExtractor reads the token from the named cookie.
func CookieTokenExtractor(cookieName string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			return "", ErrInvalidToken
		}
		return cookie.Value, nil
	}
}
