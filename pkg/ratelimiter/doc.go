// Package ratelimiter implements a sliding-window failed-attempt limiter with
// temporary blocking, used to protect login, registration and password reset.
//
// Each identifier (an email or client IP) owns a Bucket with the attempts
// seen inside the window and an optional BlockedUntil time. CheckLimit:
//
//   - rejects without mutation while the identifier is blocked;
//   - drops attempts older than Window and counts the failures left;
//   - blocks for BlockDuration once failures reach MaxAttempts;
//   - otherwise records the attempt and reports the failures still allowed.
//
// ResetLimit clears an identifier after a verified success, Status is a
// read-only check and Cleanup sweeps stale buckets.
//
// Create one Limiter per flow with its own prefix so the same email never
// shares counters across unrelated flows:
//
//	store := ratelimiter.NewMemoryStore()
//	login, _ := ratelimiter.New(store, ratelimiter.Config{
//		Window:        15 * time.Minute,
//		MaxAttempts:   5,
//		BlockDuration: 15 * time.Minute,
//	}, ratelimiter.WithPrefix("login:"))
//
//	res, err := login.CheckLimit(ctx, email, false)
//	if !res.Allowed {
//		// respond 429 with res.RetryAfter(now)
//	}
//
// # Stores
//
// MemoryStore serializes updates with a mutex and suits a single process.
// RedisStore shares limits across processes; each update is a WATCH/MULTI
// transaction retried on conflict, and keys expire after Window plus
// BlockDuration.
//
// # HTTP
//
// Middleware throttles by an arbitrary KeyFunc (client IP, for example).
// When the outcome is only known after the work runs, use Reserve and Settle
// instead of CheckLimit. Reserve takes a pending slot before the handler
// runs, so a parallel burst cannot exceed MaxAttempts. Settle then marks the
// slot as a failure or releases it. Middleware does this per request and
// treats status 400 or above as a failure. WithRejectHandler and
// WithErrorHandler let callers render their own 429 and 500 bodies.
package ratelimiter
