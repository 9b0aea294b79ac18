package email_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/email"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	return m.Called(ctx, params).Error(0)
}

var _ auth.Notifier = (*email.AuthNotifier)(nil)

func notifierConfig() email.Config {
	return email.Config{BaseURL: "https://app.example.com/", AppName: "Inspect"}
}

func TestNewAuthNotifier_Invalid(t *testing.T) {
	t.Parallel()

	_, err := email.NewAuthNotifier(nil, notifierConfig())
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	_, err = email.NewAuthNotifier(&mockSender{}, email.Config{BaseURL: "/relative"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)
}

func TestAuthNotifier_SendVerificationEmail(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	var sent email.SendEmailParams
	sender.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(email.SendEmailParams) }).
		Return(nil).Once()

	n, err := email.NewAuthNotifier(sender, notifierConfig())
	require.NoError(t, err)

	err = n.SendVerificationEmail(context.Background(), "jane@example.com", "<Jane>", "tok-123")
	require.NoError(t, err)
	sender.AssertExpectations(t)

	assert.Equal(t, "jane@example.com", sent.SendTo)
	assert.Equal(t, email.TagEmailVerification, sent.Tag)
	assert.Contains(t, sent.BodyHTML, "https://app.example.com/auth/verify-email?token=tok-123")
	assert.Contains(t, sent.BodyHTML, "Hello &lt;Jane&gt;")
	assert.NotContains(t, sent.BodyHTML, "<Jane>")
	assert.Contains(t, sent.BodyHTML, "This link expires in 24 hours.")
}

func TestAuthNotifier_SendPasswordReset(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	var sent email.SendEmailParams
	sender.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(email.SendEmailParams) }).
		Return(nil).Once()

	n, err := email.NewAuthNotifier(sender, notifierConfig(), email.WithLinkPaths("", "/reset"))
	require.NoError(t, err)

	require.NoError(t, n.SendPasswordReset(context.Background(), "jane@example.com", "", "abc"))
	assert.Equal(t, email.TagPasswordReset, sent.Tag)
	assert.Contains(t, sent.BodyHTML, "https://app.example.com/reset?token=abc")
	assert.Contains(t, sent.BodyHTML, "Hello,")
	assert.Contains(t, sent.BodyHTML, "This link expires in 1 hour.")
}

func TestAuthNotifier_LinkTTLs(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	var bodies []string
	sender.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { bodies = append(bodies, args.Get(1).(email.SendEmailParams).BodyHTML) }).
		Return(nil).Twice()

	n, err := email.NewAuthNotifier(sender, notifierConfig(), email.WithLinkTTLs(72*time.Hour, 30*time.Minute))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, n.SendVerificationEmail(ctx, "jane@example.com", "Jane", "v"))
	require.NoError(t, n.SendPasswordReset(ctx, "jane@example.com", "Jane", "r"))
	sender.AssertExpectations(t)

	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], "This link expires in 3 days.")
	assert.NotContains(t, bodies[0], "24 hours")
	assert.Contains(t, bodies[1], "This link expires in 30 minutes.")
	assert.NotContains(t, bodies[1], "1 hour")
}

func TestAuthNotifier_SenderError(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	sender.On("SendEmail", mock.Anything, mock.Anything).Return(email.ErrFailedToSendEmail)

	n, err := email.NewAuthNotifier(sender, notifierConfig())
	require.NoError(t, err)

	err = n.SendPasswordReset(context.Background(), "jane@example.com", "Jane", "abc")
	assert.True(t, errors.Is(err, email.ErrFailedToSendEmail))
}
