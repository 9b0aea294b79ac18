package jwt

import "errors"

var (
	// ErrInvalidToken covers every verification failure: bad signature,
	// wrong algorithm, issuer, audience or type, and expiry.
	ErrInvalidToken = errors.New("jwt: invalid token")

	ErrWeakSecret      = errors.New("jwt: signing secret must be at least 32 bytes")
	ErrMissingIssuer   = errors.New("jwt: issuer is required")
	ErrMissingAudience = errors.New("jwt: audience is required")
	ErrSigningFailed   = errors.New("jwt: failed to sign token")
)
