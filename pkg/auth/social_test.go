package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/inspectauth/pkg/auth"
	"github.com/dmitrymomot/inspectauth/pkg/oauth"
)

// stubOAuth returns a fixed profile for any callback.
type stubOAuth struct {
	info *oauth.UserInfo
	err  error
}

func (s *stubOAuth) InitiateLogin(_ context.Context, provider string) (*oauth.AuthRequest, error) {
	return &oauth.AuthRequest{URL: "https://idp.example.com/" + provider, State: "state"}, nil
}

func (s *stubOAuth) HandleCallback(_ context.Context, _, _, _ string) (*oauth.UserInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info := *s.info
	return &info, nil
}

func googleUser(email, id string) *oauth.UserInfo {
	return &oauth.UserInfo{
		Provider:      oauth.ProviderGoogle,
		ID:            id,
		Email:         email,
		EmailVerified: true,
		Name:          "Grace Hopper",
		Picture:       "https://example.com/grace.png",
	}
}

func TestSocial_NewUser(t *testing.T) {
	t.Parallel()

	env := newEnv(t, envConfig{})
	social := auth.NewSocialService(env.svc, &stubOAuth{info: googleUser("Grace@Example.com", "g-1")})
	ctx := context.Background()

	res, err := social.CompleteLogin(ctx, oauth.ProviderGoogle, "code", "state")
	require.NoError(t, err)
	require.NotNil(t, res.Login)
	assert.True(t, res.IsNewUser)
	assert.False(t, res.NeedsAccountLinking)

	u := res.Login.User
	assert.Equal(t, "grace@example.com", u.Email)
	assert.Equal(t, "Grace Hopper", u.Name)
	assert.Equal(t, oauth.ProviderGoogle, u.Provider)
	assert.Equal(t, auth.DefaultSocialRole, u.Role)
	assert.True(t, u.EmailVerified)

	again, err := social.CompleteLogin(ctx, oauth.ProviderGoogle, "code", "state")
	require.NoError(t, err)
	require.NotNil(t, again.Login)
	assert.False(t, again.IsNewUser)
	assert.Equal(t, u.ID, again.Login.User.ID)
	assert.Equal(t, 2, env.repo.SessionCount(u.ID))

	// A social-only account has no password to sign in with.
	_, err = env.svc.Login(ctx, auth.LoginInput{Email: "grace@example.com", Password: testPassword})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestSocial_UnverifiedEmail(t *testing.T) {
	t.Parallel()

	env := newEnv(t, envConfig{})
	info := googleUser("unverified@example.com", "g-2")
	info.EmailVerified = false
	social := auth.NewSocialService(env.svc, &stubOAuth{info: info})

	_, err := social.CompleteLogin(context.Background(), oauth.ProviderGoogle, "code", "state")
	assert.ErrorIs(t, err, auth.ErrUnverifiedEmail)
}

func TestSocial_AccountLinking(t *testing.T) {
	t.Parallel()

	env := newEnv(t, envConfig{})
	reg := env.register(t, "x@y.com")
	social := auth.NewSocialService(env.svc, &stubOAuth{info: googleUser("x@y.com", "g-77")})
	ctx := context.Background()

	res, err := social.CompleteLogin(ctx, oauth.ProviderGoogle, "code", "state")
	require.NoError(t, err)
	assert.True(t, res.NeedsAccountLinking)
	assert.Equal(t, "x@y.com", res.ExistingEmail)
	assert.Equal(t, oauth.ProviderGoogle, res.Provider)
	assert.NotEmpty(t, res.LinkToken)
	assert.Nil(t, res.Login)
	assert.Zero(t, env.repo.SessionCount(reg.User.ID))

	_, err = social.LinkSocialAccount(ctx, res.LinkToken, "Wr0ng!Pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = social.LinkSocialAccount(ctx, "garbage", testPassword)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	login, err := social.LinkSocialAccount(ctx, res.LinkToken, testPassword)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.True(t, login.User.EmailVerified)
	assert.Equal(t, "https://example.com/grace.png", login.User.Picture)

	stored, err := env.repo.GetUserByEmail(ctx, "x@y.com")
	require.NoError(t, err)
	assert.Equal(t, oauth.ProviderGoogle, stored.SocialProviderID)
	assert.Equal(t, "g-77", stored.SocialProviderUserID)
	assert.Equal(t, auth.ProviderEmail, stored.Provider)

	// Linked: the next callback signs in directly.
	next, err := social.CompleteLogin(ctx, oauth.ProviderGoogle, "code", "state")
	require.NoError(t, err)
	require.NotNil(t, next.Login)
	assert.Equal(t, reg.User.ID, next.Login.User.ID)

	// Password login still works.
	env.login(t, "x@y.com")
}

func TestSocial_ProviderConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		second   *oauth.UserInfo
		provider string
	}{
		{
			name: "different provider",
			second: &oauth.UserInfo{
				Provider: oauth.ProviderMicrosoft, ID: "ms-1", Email: "owner@example.com", EmailVerified: true,
			},
			provider: oauth.ProviderGoogle,
		},
		{
			name:     "same provider with another identity",
			second:   googleUser("owner@example.com", "g-other"),
			provider: oauth.ProviderGoogle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newEnv(t, envConfig{})
			ctx := context.Background()

			_, err := auth.NewSocialService(env.svc, &stubOAuth{info: googleUser("owner@example.com", "g-1")}).
				CompleteLogin(ctx, oauth.ProviderGoogle, "code", "state")
			require.NoError(t, err)

			_, err = auth.NewSocialService(env.svc, &stubOAuth{info: tt.second}).
				CompleteLogin(ctx, tt.second.Provider, "code", "state")
			var conflict *auth.ProviderConflictError
			require.ErrorAs(t, err, &conflict)
			assert.ErrorIs(t, err, auth.ErrUseProvider)
			assert.Equal(t, tt.provider, conflict.Provider)
		})
	}
}

func TestSocial_DemoClient(t *testing.T) {
	t.Parallel()

	env := newEnv(t, envConfig{})
	client, err := oauth.New(oauth.Config{DemoMode: true})
	require.NoError(t, err)
	social := auth.NewSocialService(env.svc, client)
	ctx := context.Background()

	t.Run("never issued state", func(t *testing.T) {
		_, err := social.CompleteLogin(ctx, oauth.ProviderGoogle, "demo-google", "forged")
		assert.ErrorIs(t, err, oauth.ErrCSRF)

		_, err = env.repo.GetUserByEmail(ctx, "demo.google@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		req, err := social.BeginLogin(ctx, oauth.ProviderMicrosoft)
		require.NoError(t, err)

		res, err := social.CompleteLogin(ctx, oauth.ProviderMicrosoft, "demo-microsoft", req.State)
		require.NoError(t, err)
		require.NotNil(t, res.Login)
		assert.Equal(t, "demo.microsoft@example.com", res.Login.User.Email)
	})
}
