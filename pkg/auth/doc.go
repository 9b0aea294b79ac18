// Package auth implements account registration, sign-in and session
// management for email and password accounts and for Google, Microsoft and
// Apple identities.
//
// Service owns the email and password flows:
//
//	svc, err := auth.NewService(repo, passwords, tokens, auth.Limiters{
//		Login:         loginLimiter,
//		Registration:  registrationLimiter,
//		PasswordReset: resetLimiter,
//	}, auth.WithNotifier(notifier), auth.WithRefreshRotation())
//
//	res, err := svc.Login(ctx, auth.LoginInput{Email: email, Password: pw})
//
// Each flow has its own rate limiter keyed by email. On top of that, ten
// consecutive wrong passwords lock an account for an hour. Failed logins
// always run a bcrypt comparison so an unknown email costs the same as a wrong
// password.
//
// A login opens a Session with a token family. Refresh checks the family of
// the presented refresh token against the session; a mismatch means a retired
// token was replayed and every session of the user is revoked.
//
// SocialService completes provider callbacks. A new email gets a verified
// account; an email that belongs to a password account needs the password
// once, through LinkSocialAccount; an email owned by another provider is
// rejected with ProviderConflictError.
//
// Errors are sentinels checked with errors.Is. RateLimitError, LockedError
// and ProviderConflictError carry details and are read with errors.As.
// Store and signing failures are logged and surface as ErrInternal.
package auth
