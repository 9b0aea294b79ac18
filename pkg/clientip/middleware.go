package clientip

import (
	"net/http"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

// Middleware resolves the client IP once per request and stores it in the
// context for handlers and for the context-aware logger.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetIP(r)
		ctx := SetIPToContext(r.Context(), ip)
		ctx = logger.WithClientIP(ctx, ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
