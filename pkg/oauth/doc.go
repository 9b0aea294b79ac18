// Package oauth implements social sign-in with Google, Microsoft and Apple
// using the authorization-code flow with PKCE.
//
// A login starts with InitiateLogin, which stores a single-use state and code
// verifier and returns the provider URL:
//
//	req, err := client.InitiateLogin(ctx, oauth.ProviderGoogle)
//	http.Redirect(w, r, req.URL, http.StatusFound)
//
// The provider redirects back with code and state; HandleCallback consumes the
// state, exchanges the code and returns a normalized UserInfo:
//
//	info, err := client.HandleCallback(ctx, oauth.ProviderGoogle, code, state)
//	if errors.Is(err, oauth.ErrCSRF) { ... }
//
// Apple returns the profile inside the identity token, which is verified
// against Apple's published keys unless SkipIDTokenVerification is set.
//
// States live in a MemoryStateStore by default. Use RedisStateStore when more
// than one instance serves callbacks.
//
// In demo mode no network calls are made: the authorization URL points back
// at the redirect URL with a demo code, and the callback returns a canned
// user once the state checks pass.
package oauth
