// Package logger builds structured slog loggers for the auth services and
// provides attribute constructors that keep key names consistent across
// packages.
//
// New returns a *slog.Logger configured through functional options. The
// handler is wrapped with a decorator that pulls request-scoped values
// (request id, client ip) out of the context on every record, so service code
// can simply call logger.InfoContext(ctx, ...).
//
// # Usage
//
//	log := logger.New(logger.WithEnvironment("production", "authd"))
//	log.WarnContext(ctx, "account locked",
//		logger.UserID(user.ID),
//		logger.Email(user.Email),
//		logger.Component("auth"),
//	)
//
// Email masks the local part so addresses never land in logs verbatim. Attribute
// helpers return an empty slog.Attr for nil or empty input; slog drops those.
package logger
