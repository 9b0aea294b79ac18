// Package authapi exposes auth.Service and auth.SocialService as a JSON API
// on a chi router.
//
// Every response uses the Envelope shape. Failures carry a stable error code
// and map to HTTP statuses: 400 validation, 401 bad credentials or token,
// 403 inactive account or OAuth state failure, 409 duplicate email or
// provider conflict, 423 locked account, 429 rate limited. 423 and 429 set
// Retry-After.
//
//	api := authapi.New(svc, authapi.WithSocial(social), authapi.WithLogger(log))
//	router.Mount("/auth", api.Routes())
package authapi
