// Package clientip resolves the caller's address from proxy headers or
// RemoteAddr. The auth HTTP layer keys per-IP throttling on it and the
// logger attaches it to every record of the request.
package clientip
