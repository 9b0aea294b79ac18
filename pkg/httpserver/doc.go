// Package httpserver runs the auth API with explicit timeouts and graceful
// shutdown, and provides liveness and readiness handlers.
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
//
// Run returns once ctx is cancelled and in-flight requests have drained or
// ShutdownTimeout has elapsed.
package httpserver
