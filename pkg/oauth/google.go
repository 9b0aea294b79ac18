package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type googleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
}

func newGoogle(cfg ProviderConfig) *googleProvider {
	return &googleProvider{
		conf:        oauthConfig(cfg, googleEndpoint, []string{"openid", "email", "profile"}),
		userInfoURL: orDefault(cfg.UserInfoURL, googleUserInfoURL),
	}
}

func (p *googleProvider) config() *oauth2.Config { return p.conf }

func (p *googleProvider) authOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.AccessTypeOffline,
	}
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (p *googleProvider) userInfo(ctx context.Context, tok *oauth2.Token) (*UserInfo, error) {
	var u googleUser
	if err := fetchJSON(ctx, p.conf, tok, p.userInfoURL, &u); err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	return &UserInfo{
		Provider:      ProviderGoogle,
		ID:            u.ID,
		Email:         normalizeEmail(u.Email),
		EmailVerified: u.VerifiedEmail,
		Name:          u.Name,
		GivenName:     u.GivenName,
		FamilyName:    u.FamilyName,
		Picture:       u.Picture,
	}, nil
}
