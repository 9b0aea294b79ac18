package oauth

import (
	"net/url"
	"strings"
)

func demoURL(redirectURL, providerName, state string) string {
	if redirectURL == "" {
		redirectURL = "/oauth/" + providerName + "/callback"
	}
	q := url.Values{}
	q.Set("code", "demo-"+providerName)
	q.Set("state", state)

	sep := "?"
	if strings.Contains(redirectURL, "?") {
		sep = "&"
	}
	return redirectURL + sep + q.Encode()
}

func demoUser(providerName string) *UserInfo {
	u := &UserInfo{
		Provider:      providerName,
		ID:            "demo-" + providerName + "-user",
		Email:         "demo." + providerName + "@example.com",
		EmailVerified: true,
		GivenName:     "Demo",
		FamilyName:    "User",
		Name:          "Demo User",
	}
	if providerName == ProviderGoogle {
		u.Picture = "https://example.com/avatars/demo.png"
	}
	return u
}
