package templates

import (
	"strconv"
	"time"

	"github.com/a-h/templ"
)

//go:generate templ generate

// ActionEmailProps describes a single-call-to-action auth email.
type ActionEmailProps struct {
	AppName    string
	Name       string
	Intro      string
	ButtonText string
	ActionURL  string
	// ExpiresIn is the human-readable link lifetime, see FormatTTL.
	ExpiresIn string
	Outro     string
}

func (p ActionEmailProps) greeting() string {
	if p.Name == "" {
		return "Hello"
	}
	return "Hello " + p.Name
}

// VerificationEmail asks the recipient to confirm their address before the
// link expires after ttl.
func VerificationEmail(appName, name, actionURL string, ttl time.Duration) templ.Component {
	return ActionEmail(ActionEmailProps{
		AppName:    appName,
		Name:       name,
		Intro:      "Thanks for signing up. Please confirm your email address to activate your account.",
		ButtonText: "Verify email",
		ActionURL:  actionURL,
		ExpiresIn:  FormatTTL(ttl),
		Outro:      "If you did not create an account, you can ignore this email.",
	})
}

// PasswordResetEmail carries a password reset link valid for ttl.
func PasswordResetEmail(appName, name, actionURL string, ttl time.Duration) templ.Component {
	return ActionEmail(ActionEmailProps{
		AppName:    appName,
		Name:       name,
		Intro:      "We received a request to reset your password.",
		ButtonText: "Reset password",
		ActionURL:  actionURL,
		ExpiresIn:  FormatTTL(ttl),
		Outro:      "If you did not request a reset, you can ignore this email. Your password will not change.",
	})
}

// FormatTTL renders a link lifetime as "3 days", "24 hours" or "90 minutes".
// Whole days are used from two days up. It returns "" for d < 1 minute.
func FormatTTL(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d >= 2*day && d%day == 0:
		return plural(int(d/day), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return ""
	}
}

func plural(n int, unit string) string {
	s := strconv.Itoa(n) + " " + unit
	if n != 1 {
		s += "s"
	}
	return s
}
