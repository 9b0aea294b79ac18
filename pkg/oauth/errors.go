package oauth

import "errors"

var (
	// ErrCSRF means the callback state is unknown, expired, already used or
	// issued for another provider.
	ErrCSRF = errors.New("oauth: invalid state")

	// ErrPKCE means no code verifier is bound to the callback state.
	ErrPKCE = errors.New("oauth: missing code verifier")

	// ErrProvider wraps failures talking to the identity provider: token
	// exchange, user info, identity token checks.
	ErrProvider = errors.New("oauth: provider error")

	ErrUnknownProvider = errors.New("oauth: unknown or unconfigured provider")
	ErrNoProviders     = errors.New("oauth: no provider configured")
	ErrMissingEmail    = errors.New("oauth: provider returned no email")
	ErrInvalidIDToken  = errors.New("oauth: invalid identity token")
	ErrStateNotFound   = errors.New("oauth: state not found")
)
