package main

import (
	"time"

	"github.com/dmitrymomot/inspectauth/pkg/ratelimiter"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// APIPrefix is where the auth routes are mounted.
	APIPrefix string `env:"API_PREFIX" envDefault:"/api/auth"`

	RefreshRotation   bool          `env:"AUTH_REFRESH_ROTATION" envDefault:"true"`
	MaxFailedAttempts int           `env:"AUTH_MAX_FAILED_ATTEMPTS" envDefault:"10"`
	LockDuration      time.Duration `env:"AUTH_LOCK_DURATION" envDefault:"1h"`
	ResetTokenTTL     time.Duration `env:"AUTH_RESET_TOKEN_TTL" envDefault:"1h"`
	VerifyTokenTTL    time.Duration `env:"AUTH_VERIFICATION_TOKEN_TTL" envDefault:"24h"`

	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
}

// limitsConfig holds one limiter config per protected flow.
type limitsConfig struct {
	Login         ratelimiter.Config `envPrefix:"LOGIN_RATE_LIMIT_"`
	Registration  ratelimiter.Config `envPrefix:"REGISTER_RATE_LIMIT_"`
	PasswordReset ratelimiter.Config `envPrefix:"RESET_RATE_LIMIT_"`
	IP            ratelimiter.Config `envPrefix:"IP_RATE_LIMIT_"`
}
