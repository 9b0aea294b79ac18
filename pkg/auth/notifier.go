package auth

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

// Notifier delivers raw verification and reset tokens to the user.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// logNotifier is used when no Notifier is configured. Tokens are not logged.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) SendVerificationEmail(ctx context.Context, to, _, _ string) error {
	n.logger.WarnContext(ctx, "no notifier configured, verification email not sent",
		logger.Component("auth"),
		logger.Email(to),
	)
	return nil
}

func (n logNotifier) SendPasswordReset(ctx context.Context, to, _, _ string) error {
	n.logger.WarnContext(ctx, "no notifier configured, password reset email not sent",
		logger.Component("auth"),
		logger.Email(to),
	)
	return nil
}
