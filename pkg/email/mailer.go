package email

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrymomot/inspectauth/pkg/validator"
)

// EmailSender delivers a rendered message.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

// Validate reports every missing or malformed field, wrapped in ErrInvalidParams.
func (p SendEmailParams) Validate() error {
	to := strings.ToLower(strings.TrimSpace(p.SendTo))
	err := validator.Apply(
		validator.Required("SendTo", to),
		validator.ValidEmail("SendTo", to),
		validator.Required("Subject", strings.TrimSpace(p.Subject)),
		validator.Required("BodyHTML", strings.TrimSpace(p.BodyHTML)),
	)
	if err != nil {
		return errors.Join(ErrInvalidParams, err)
	}
	return nil
}
