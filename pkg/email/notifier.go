package email

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/inspectauth/pkg/email/templates"
	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

const (
	TagEmailVerification = "email-verification"
	TagPasswordReset     = "password-reset"

	DefaultVerifyPath = "/auth/verify-email"
	DefaultResetPath  = "/auth/reset-password"

	// Link lifetimes quoted in emails unless WithLinkTTLs says otherwise.
	// They match the auth service defaults.
	DefaultVerifyTTL = 24 * time.Hour
	DefaultResetTTL  = time.Hour
)

// AuthNotifier renders auth emails and hands them to an EmailSender.
// It satisfies auth.Notifier.
type AuthNotifier struct {
	sender     EmailSender
	baseURL    string
	appName    string
	verifyPath string
	resetPath  string
	verifyTTL  time.Duration
	resetTTL   time.Duration
	logger     *slog.Logger
}

// NotifierOption configures AuthNotifier.
type NotifierOption func(*AuthNotifier)

// WithNotifierLogger sets a custom logger.
func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *AuthNotifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithLinkPaths overrides the paths appended to the base URL.
func WithLinkPaths(verifyPath, resetPath string) NotifierOption {
	return func(n *AuthNotifier) {
		if verifyPath != "" {
			n.verifyPath = verifyPath
		}
		if resetPath != "" {
			n.resetPath = resetPath
		}
	}
}

// WithLinkTTLs sets the link lifetimes quoted in the emails. Pass the same
// values the auth service uses for its tokens.
func WithLinkTTLs(verify, reset time.Duration) NotifierOption {
	return func(n *AuthNotifier) {
		if verify > 0 {
			n.verifyTTL = verify
		}
		if reset > 0 {
			n.resetTTL = reset
		}
	}
}

// NewAuthNotifier builds links from cfg.BaseURL and cfg.AppName.
func NewAuthNotifier(sender EmailSender, cfg Config, opts ...NotifierOption) (*AuthNotifier, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: sender is required", ErrInvalidConfig)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url must be absolute, got %q", ErrInvalidConfig, cfg.BaseURL)
	}

	n := &AuthNotifier{
		sender:     sender,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appName:    cfg.AppName,
		verifyPath: DefaultVerifyPath,
		resetPath:  DefaultResetPath,
		verifyTTL:  DefaultVerifyTTL,
		resetTTL:   DefaultResetTTL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if n.appName == "" {
		n.appName = "Inspect"
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// SendVerificationEmail mails the email confirmation link.
func (n *AuthNotifier) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	link := n.link(n.verifyPath, token)
	return n.send(ctx, to, "Confirm your email address", TagEmailVerification,
		templates.VerificationEmail(n.appName, name, link, n.verifyTTL))
}

// SendPasswordReset mails the password reset link.
func (n *AuthNotifier) SendPasswordReset(ctx context.Context, to, name, token string) error {
	link := n.link(n.resetPath, token)
	return n.send(ctx, to, "Reset your password", TagPasswordReset,
		templates.PasswordResetEmail(n.appName, name, link, n.resetTTL))
}

func (n *AuthNotifier) link(path, token string) string {
	return n.baseURL + path + "?" + url.Values{"token": {token}}.Encode()
}

func (n *AuthNotifier) send(ctx context.Context, to, subject, tag string, tpl templ.Component) error {
	body, err := templates.Render(ctx, tpl)
	if err != nil {
		return fmt.Errorf("email: render %s: %w", tag, err)
	}
	if err := n.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: body,
		Tag:      tag,
	}); err != nil {
		n.logger.ErrorContext(ctx, "auth email not delivered",
			logger.Component("email"),
			logger.Event(tag),
			logger.Email(to),
			logger.Error(err),
		)
		return err
	}
	return nil
}
