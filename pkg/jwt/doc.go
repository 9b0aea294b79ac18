// Package jwt issues and verifies the signed tokens used by the auth
// subsystem, built on github.com/golang-jwt/jwt/v5.
//
// Three token kinds share one HS256 key and are told apart by the "typ"
// claim: access tokens (short-lived, stateless), refresh tokens (long-lived,
// bound to a server-side session and token family) and link tokens (carry a
// provider-verified identity through the account-linking step). Every token
// carries iss, aud, iat, exp and a random jti.
//
// Verification checks signature, algorithm, issuer, audience, expiry and
// type. All failures are reported as ErrInvalidToken so that callers cannot
// distinguish an expired token from a tampered one.
//
//	svc, err := jwt.New(jwt.Config{Secret: secret, Issuer: "inspectauth", Audience: "api"})
//	access, err := svc.GenerateAccessToken(jwt.AccessPayload{UserID: id, SessionID: sid}, 0)
//	claims, err := svc.VerifyAccessToken(access)
//
// Middleware verifies bearer tokens on HTTP requests and exposes the claims
// through GetClaims.
package jwt
