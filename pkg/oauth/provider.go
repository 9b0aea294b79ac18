package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// provider adapts one identity provider to the authorization-code flow.
type provider interface {
	config() *oauth2.Config
	authOptions() []oauth2.AuthCodeOption
	// userInfo turns an exchanged token into a profile. ctx carries the
	// HTTP client and deadline.
	userInfo(ctx context.Context, tok *oauth2.Token) (*UserInfo, error)
}

func newProvider(name string, cfg ProviderConfig, verifier *IDTokenVerifier) (provider, error) {
	switch name {
	case ProviderGoogle:
		return newGoogle(cfg), nil
	case ProviderMicrosoft:
		return newMicrosoft(cfg), nil
	case ProviderApple:
		return newApple(cfg, verifier), nil
	}
	return nil, ErrUnknownProvider
}

func oauthConfig(cfg ProviderConfig, endpoint oauth2.Endpoint, scopes []string) *oauth2.Config {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if len(cfg.Scopes) > 0 {
		scopes = cfg.Scopes
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
		Endpoint:     endpoint,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// fetchJSON GETs url with the token attached and decodes the response into v.
func fetchJSON(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := conf.Client(ctx, tok).Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
