package jwt

import "time"

// MinSecretLength is the shortest accepted HMAC secret in bytes.
const MinSecretLength = 32

// Config holds token signing settings. Read once at startup.
type Config struct {
	Secret     string        `env:"JWT_SECRET,required"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"inspectauth"`
	Audience   string        `env:"JWT_AUDIENCE" envDefault:"inspectauth-api"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	LinkTTL    time.Duration `env:"JWT_LINK_TTL" envDefault:"10m"`
}

// Validate checks the secret strength and required claims.
func (c *Config) Validate() error {
	if len(c.Secret) < MinSecretLength {
		return ErrWeakSecret
	}
	if c.Issuer == "" {
		return ErrMissingIssuer
	}
	if c.Audience == "" {
		return ErrMissingAudience
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.AccessTTL <= 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.LinkTTL <= 0 {
		c.LinkTTL = 10 * time.Minute
	}
}
