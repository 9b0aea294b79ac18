package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	appleIssuer  = "https://appleid.apple.com"
	appleJWKSURL = "https://appleid.apple.com/auth/keys"
)

var appleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://appleid.apple.com/auth/authorize",
	TokenURL:  "https://appleid.apple.com/auth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type appleProvider struct {
	conf     *oauth2.Config
	verifier *IDTokenVerifier // nil skips signature verification
}

func newApple(cfg ProviderConfig, verifier *IDTokenVerifier) *appleProvider {
	return &appleProvider{
		conf:     oauthConfig(cfg, appleEndpoint, []string{"name", "email"}),
		verifier: verifier,
	}
}

func (p *appleProvider) config() *oauth2.Config { return p.conf }

func (p *appleProvider) authOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_mode", "form_post"),
	}
}

// flexBool accepts both JSON booleans and the "true"/"false" strings Apple
// sometimes sends.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		*b = flexBool(t == "true")
	}
	return nil
}

type appleClaims struct {
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	gojwt.RegisteredClaims
}

func (p *appleProvider) userInfo(ctx context.Context, tok *oauth2.Token) (*UserInfo, error) {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, fmt.Errorf("apple: %w: missing id_token", ErrInvalidIDToken)
	}

	claims := &appleClaims{}
	if p.verifier != nil {
		if err := p.verifier.Verify(ctx, raw, claims); err != nil {
			return nil, err
		}
	} else {
		if _, _, err := gojwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, errors.Join(ErrInvalidIDToken, err)
		}
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("apple: %w: missing subject", ErrInvalidIDToken)
	}

	return &UserInfo{
		Provider:      ProviderApple,
		ID:            claims.Subject,
		Email:         normalizeEmail(claims.Email),
		EmailVerified: bool(claims.EmailVerified),
	}, nil
}
