package auth

import (
	"time"

	"github.com/google/uuid"
)

// Role is what a user may do in the application.
type Role string

const (
	RoleTenant          Role = "tenant"
	RoleLandlord        Role = "landlord"
	RolePropertyManager Role = "property_manager"
	RoleInspector       Role = "inspector"
	RoleAdmin           Role = "admin"
)

// DefaultSocialRole is given to accounts created through a social provider.
const DefaultSocialRole = RoleTenant

// ProviderEmail marks accounts created with email and password.
const ProviderEmail = "email"

// User is a stored account. Users are never deleted, only deactivated.
type User struct {
	ID            uuid.UUID
	Email         string
	Name          string
	Phone         string
	Role          Role
	PasswordHash  string
	Provider      string
	EmailVerified bool
	IsActive      bool

	FailedLoginAttempts int
	LockedUntil         *time.Time

	// Verification and reset tokens are stored as SHA-256 hex digests.
	EmailVerificationToken  string
	EmailVerificationExpiry *time.Time
	PasswordResetToken      string
	PasswordResetExpiry     *time.Time

	LastLogin            *time.Time
	SocialProviderID     string
	SocialProviderUserID string
	Picture              string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser is the part of User safe to hand to clients.
type PublicUser struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone,omitempty"`
	Role          Role       `json:"role"`
	Provider      string     `json:"provider"`
	EmailVerified bool       `json:"emailVerified"`
	IsActive      bool       `json:"isActive"`
	Picture       string     `json:"picture,omitempty"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Public strips credentials and tokens.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		Role:          u.Role,
		Provider:      u.Provider,
		EmailVerified: u.EmailVerified,
		IsActive:      u.IsActive,
		Picture:       u.Picture,
		LastLogin:     cloneTime(u.LastLogin),
		CreatedAt:     u.CreatedAt,
	}
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	c.LockedUntil = cloneTime(u.LockedUntil)
	c.EmailVerificationExpiry = cloneTime(u.EmailVerificationExpiry)
	c.PasswordResetExpiry = cloneTime(u.PasswordResetExpiry)
	c.LastLogin = cloneTime(u.LastLogin)
	return &c
}

// IsLocked reports whether the account is locked at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Session ties a refresh token lineage to a user.
type Session struct {
	ID          string
	UserID      uuid.UUID
	TokenFamily string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// LoginResult is a successful sign-in.
type LoginResult struct {
	User      PublicUser `json:"user"`
	SessionID string     `json:"sessionId"`
	Tokens    TokenPair  `json:"tokens"`
}

// RegisterResult is a created account. VerificationToken is the raw token
// also handed to the Notifier.
type RegisterResult struct {
	User              PublicUser `json:"user"`
	VerificationToken string     `json:"-"`
}

// Principal is the identity carried by a valid access token.
type Principal struct {
	UserID    uuid.UUID
	Email     string
	Role      Role
	SessionID string
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
