package oauth

import "time"

// Provider names.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
	ProviderApple     = "apple"
)

// Providers lists every supported provider.
var Providers = []string{ProviderGoogle, ProviderMicrosoft, ProviderApple}

// ProviderConfig configures one identity provider. Endpoint URLs default to
// the provider's public endpoints and only need overriding in tests.
type ProviderConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURL  string   `env:"REDIRECT_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`

	AuthURL     string `env:"AUTH_URL"`
	TokenURL    string `env:"TOKEN_URL"`
	UserInfoURL string `env:"USERINFO_URL"`
	JWKSURL     string `env:"JWKS_URL"`

	// SkipIDTokenVerification trusts identity token claims without checking
	// the signature. Only for providers or environments without reachable keys.
	SkipIDTokenVerification bool `env:"SKIP_ID_TOKEN_VERIFICATION" envDefault:"false"`
}

// Enabled reports whether the provider has credentials.
func (p ProviderConfig) Enabled() bool {
	return p.ClientID != ""
}

// Config configures the OAuth client. Read once at startup.
type Config struct {
	StateTTL    time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
	HTTPTimeout time.Duration `env:"OAUTH_HTTP_TIMEOUT" envDefault:"10s"`

	// DemoMode skips every network call and returns canned users.
	// Never enable it for real traffic.
	DemoMode bool `env:"OAUTH_DEMO_MODE" envDefault:"false"`

	Google    ProviderConfig `envPrefix:"GOOGLE_OAUTH_"`
	Microsoft ProviderConfig `envPrefix:"MICROSOFT_OAUTH_"`
	Apple     ProviderConfig `envPrefix:"APPLE_OAUTH_"`
}

func (c *Config) applyDefaults() {
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
}

func (c *Config) provider(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderGoogle:
		return c.Google, true
	case ProviderMicrosoft:
		return c.Microsoft, true
	case ProviderApple:
		return c.Apple, true
	}
	return ProviderConfig{}, false
}
