package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/email"
)

func TestNewPostmarkSender(t *testing.T) {
	t.Parallel()

	valid := email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "Sender@Example.com",
		SupportEmail:         "support@example.com",
	}

	tests := []struct {
		name    string
		mutate  func(*email.Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*email.Config) {}},
		{name: "no server token", mutate: func(c *email.Config) { c.PostmarkServerToken = "" }, wantErr: []string{"PostmarkServerToken is required"}},
		{
			name: "no tokens at all",
			mutate: func(c *email.Config) {
				c.PostmarkServerToken = ""
				c.PostmarkAccountToken = ""
			},
			wantErr: []string{"PostmarkServerToken is required", "PostmarkAccountToken is required"},
		},
		{name: "bad sender", mutate: func(c *email.Config) { c.SenderEmail = "nope" }, wantErr: []string{"SenderEmail"}},
		{name: "missing support", mutate: func(c *email.Config) { c.SupportEmail = "" }, wantErr: []string{"SupportEmail"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)

			sender, err := email.NewPostmarkSender(cfg)
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				assert.NotNil(t, sender)
				assert.True(t, cfg.UsePostmark())
				return
			}
			assert.Nil(t, sender)
			assert.ErrorIs(t, err, email.ErrInvalidConfig)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestMustNewPostmarkSender_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		email.MustNewPostmarkSender(email.Config{})
	})
}
