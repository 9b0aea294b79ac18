package oauth

// UserInfo is a provider profile normalized to one shape.
type UserInfo struct {
	Provider      string `json:"provider"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// AuthRequest is the redirect a caller sends the user to.
type AuthRequest struct {
	URL   string `json:"url"`
	State string `json:"state"`
}
