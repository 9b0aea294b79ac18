package jwt

import "context"

type contextKey struct{ name string }

func (c contextKey) String() string { return c.name }

var (
	tokenContextKey  = &contextKey{name: "jwt"}
	claimsContextKey = &contextKey{name: "jwt_claims"}
)

// SetToken stores the raw access token in the context.
func SetToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// SetClaims stores verified access claims in the context.
func SetClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// GetToken returns the raw access token from the context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok
}

// GetClaims returns verified access claims from the context.
func GetClaims(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*AccessClaims)
	return claims, ok && claims != nil
}
