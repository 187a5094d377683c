package domain

import (
	"errors"
	"time"
)

// RefreshAccessTokenError flags a session whose provider token could not be renewed.
const RefreshAccessTokenError = "RefreshAccessTokenError"

// IdentityClaims is the minimal identity projection embedded in a session.
type IdentityClaims struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location,omitempty"`
	Role     Role   `json:"role"`
}

// Validate rejects claims that must never be encoded.
func (c IdentityClaims) Validate() error {
	if c.ID == "" {
		return errors.New("claims: id is required")
	}
	if c.Role == "" {
		return errors.New("claims: role is required")
	}
	if !c.Role.Valid() {
		return errors.New("claims: unknown role " + string(c.Role))
	}
	return nil
}

// OAuthGrant is the token material returned by an identity provider.
// The zero value is a login without third-party tokens.
type OAuthGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// ExternalProfile is what an identity provider tells us about the user.
type ExternalProfile struct {
	Provider      string
	Subject       string
	Name          string
	Email         string
	EmailVerified bool
}

// SessionToken is the decoded form of the signed session cookie.
type SessionToken struct {
	Claims               IdentityClaims
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time
	Error                string
	IssuedAt             time.Time
	ExpiresAt            time.Time
}

// AccessTokenStale reports whether the provider access token must be renewed.
func (s SessionToken) AccessTokenStale(now time.Time) bool {
	if s.AccessToken == "" && s.RefreshToken == "" {
		return false
	}
	return !now.Before(s.AccessTokenExpiresAt)
}
