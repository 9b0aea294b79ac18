package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
	"github.com/dmitrymomot/inspectauth/pkg/validator"
)

// PostmarkSender delivers mail through Postmark's transactional API.
type PostmarkSender struct {
	client  *postmark.Client
	from    string
	replyTo string
	logger  *slog.Logger
}

// PostmarkOption configures PostmarkSender.
type PostmarkOption func(*PostmarkSender)

// WithPostmarkLogger sets a custom logger.
func WithPostmarkLogger(l *slog.Logger) PostmarkOption {
	return func(s *PostmarkSender) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewPostmarkSender requires both tokens plus valid sender and support
// addresses.
func NewPostmarkSender(cfg Config, opts ...PostmarkOption) (*PostmarkSender, error) {
	var missing []error
	if cfg.PostmarkServerToken == "" {
		missing = append(missing, errors.New("PostmarkServerToken is required"))
	}
	if cfg.PostmarkAccountToken == "" {
		missing = append(missing, errors.New("PostmarkAccountToken is required"))
	}
	if len(missing) > 0 {
		return nil, errors.Join(append([]error{ErrInvalidConfig}, missing...)...)
	}

	from := strings.ToLower(strings.TrimSpace(cfg.SenderEmail))
	replyTo := strings.ToLower(strings.TrimSpace(cfg.SupportEmail))
	if err := validator.Apply(
		validator.Required("SenderEmail", from),
		validator.ValidEmail("SenderEmail", from),
		validator.Required("SupportEmail", replyTo),
		validator.ValidEmail("SupportEmail", replyTo),
	); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	s := &PostmarkSender{
		client:  postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:    from,
		replyTo: replyTo,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustNewPostmarkSender panics on invalid config.
func MustNewPostmarkSender(cfg Config, opts ...PostmarkOption) *PostmarkSender {
	s, err := NewPostmarkSender(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// SendEmail sends one message. Open and link tracking stay off because auth
// emails carry single-use tokens.
func (s *PostmarkSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.from,
		ReplyTo:    s.replyTo,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TrackOpens: false,
		TrackLinks: "None",
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSendEmail, fmt.Errorf("postmark: code %d: %s", resp.ErrorCode, resp.Message))
	}

	s.logger.DebugContext(ctx, "email sent",
		logger.Component("email"),
		logger.Email(params.SendTo),
		slog.String("tag", params.Tag),
		slog.String("message_id", resp.MessageID),
	)
	return nil
}
