package jwt

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	TypeLink    = "link"
)

// AccessPayload is the identity encoded into an access token.
type AccessPayload struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

// RefreshPayload is the session lineage encoded into a refresh token.
type RefreshPayload struct {
	UserID      string
	SessionID   string
	TokenFamily string
}

// LinkPayload is a provider-verified identity waiting to be linked to an
// existing password account.
type LinkPayload struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
}

// AccessClaims are the claims of a short-lived access token.
type AccessClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
	TokenType string `json:"typ"`
	gojwt.RegisteredClaims
}

// Validate is called by the parser after the registered claims pass.
func (c AccessClaims) Validate() error {
	if c.TokenType != TypeAccess || c.UserID == "" || c.SessionID == "" {
		return ErrInvalidToken
	}
	return nil
}

// RefreshClaims are the claims of a long-lived refresh token.
type RefreshClaims struct {
	UserID      string `json:"userId"`
	SessionID   string `json:"sessionId"`
	TokenFamily string `json:"tokenFamily"`
	TokenType   string `json:"typ"`
	gojwt.RegisteredClaims
}

func (c RefreshClaims) Validate() error {
	if c.TokenType != TypeRefresh || c.UserID == "" || c.SessionID == "" || c.TokenFamily == "" {
		return ErrInvalidToken
	}
	return nil
}

// LinkClaims are the claims of an account-link token.
type LinkClaims struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"providerUserId"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	Picture        string `json:"picture,omitempty"`
	TokenType      string `json:"typ"`
	gojwt.RegisteredClaims
}

func (c LinkClaims) Validate() error {
	if c.TokenType != TypeLink || c.Provider == "" || c.ProviderUserID == "" || c.Email == "" {
		return ErrInvalidToken
	}
	return nil
}

// Payload returns the identity carried by the token.
func (c *LinkClaims) Payload() LinkPayload {
	return LinkPayload{
		Provider:       c.Provider,
		ProviderUserID: c.ProviderUserID,
		Email:          c.Email,
		Name:           c.Name,
		Picture:        c.Picture,
	}
}
