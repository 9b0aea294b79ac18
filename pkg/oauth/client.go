package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/inspectauth/pkg/logger"
)

const stateBytes = 32

// Client runs the authorization-code flow with PKCE for the configured
// providers.
type Client struct {
	cfg        Config
	providers  map[string]provider
	states     StateStore
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
}

// Option configures Client.
type Option func(*Client)

// WithStateStore replaces the default in-memory state store.
func WithStateStore(s StateStore) Option {
	return func(c *Client) {
		if s != nil {
			c.states = s
		}
	}
}

// WithHTTPClient sets the client used for token exchange, user info and JWKS.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for every provider with a client id. In demo mode all
// providers are available and no credentials are needed.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.applyDefaults()

	c := &Client{
		cfg:        cfg,
		providers:  make(map[string]provider, len(Providers)),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		clock:      clockwork.NewRealClock(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.states == nil {
		c.states = NewMemoryStateStore(c.clock)
	}

	for _, name := range Providers {
		pc, _ := cfg.provider(name)
		if !pc.Enabled() && !cfg.DemoMode {
			continue
		}

		var verifier *IDTokenVerifier
		if name == ProviderApple && !pc.SkipIDTokenVerification {
			verifier = NewIDTokenVerifier(orDefault(pc.JWKSURL, appleJWKSURL), appleIssuer, pc.ClientID, c.httpClient, c.clock, c.logger)
		}

		p, err := newProvider(name, pc, verifier)
		if err != nil {
			return nil, err
		}
		c.providers[name] = p
	}

	if len(c.providers) == 0 {
		return nil, ErrNoProviders
	}
	return c, nil
}

// Enabled lists the configured providers in a stable order.
func (c *Client) Enabled() []string {
	out := make([]string, 0, len(c.providers))
	for _, name := range Providers {
		if _, ok := c.providers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// IsEnabled reports whether the provider is configured.
func (c *Client) IsEnabled(name string) bool {
	return slices.Contains(c.Enabled(), name)
}

// DemoMode reports whether network calls are simulated.
func (c *Client) DemoMode() bool {
	return c.cfg.DemoMode
}

// InitiateLogin stores a fresh state and PKCE verifier and returns the
// provider's authorization URL.
func (c *Client) InitiateLogin(ctx context.Context, providerName string) (*AuthRequest, error) {
	p, ok := c.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	data := StateData{
		Provider:  providerName,
		Verifier:  verifier,
		CreatedAt: c.clock.Now(),
	}
	if err := c.states.Save(ctx, state, data, c.cfg.StateTTL); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	if c.cfg.DemoMode {
		return &AuthRequest{URL: demoURL(p.config().RedirectURL, providerName, state), State: state}, nil
	}

	opts := append([]oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}, p.authOptions()...)
	return &AuthRequest{
		URL:   p.config().AuthCodeURL(state, opts...),
		State: state,
	}, nil
}

// HandleCallback consumes the state, exchanges the code and returns the
// normalized profile.
func (c *Client) HandleCallback(ctx context.Context, providerName, code, state string) (*UserInfo, error) {
	p, ok := c.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	data, err := c.states.Consume(ctx, state)
	if err != nil {
		c.logger.WarnContext(ctx, "oauth state rejected",
			logger.Component("oauth"),
			logger.Provider(providerName),
			logger.Event("csrf_failure"),
			logger.Error(err),
		)
		return nil, errors.Join(ErrCSRF, err)
	}
	if data.Provider != providerName {
		c.logger.WarnContext(ctx, "oauth state issued for another provider",
			logger.Component("oauth"),
			logger.Provider(providerName),
			logger.Event("csrf_failure"),
		)
		return nil, ErrCSRF
	}
	if data.Verifier == "" {
		return nil, ErrPKCE
	}

	if c.cfg.DemoMode {
		return demoUser(providerName), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := p.config().Exchange(ctx, code, oauth2.VerifierOption(data.Verifier))
	if err != nil {
		c.logger.ErrorContext(ctx, "oauth code exchange failed",
			logger.Component("oauth"),
			logger.Provider(providerName),
			logger.Error(err),
		)
		return nil, errors.Join(ErrProvider, err)
	}

	info, err := p.userInfo(ctx, tok)
	if err != nil {
		c.logger.ErrorContext(ctx, "oauth user info failed",
			logger.Component("oauth"),
			logger.Provider(providerName),
			logger.Error(err),
		)
		return nil, errors.Join(ErrProvider, err)
	}
	if info.Email == "" {
		return nil, ErrMissingEmail
	}
	return info, nil
}

func randomState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
