package auth

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound                = errors.New("user not found")
	ErrInvalidCredentials          = errors.New("invalid credentials")
	ErrRefreshAccessToken          = errors.New("refresh access token failed")
	ErrIdentityProviderUnavailable = errors.New("identity provider unavailable")
	ErrTokenDecode                 = errors.New("session token could not be decoded")
	ErrInvalidClaims               = errors.New("invalid identity claims")
	ErrMissingRefreshToken         = errors.New("session has no refresh token")
	ErrProviderNotConfigured       = errors.New("external identity provider not configured")
	ErrEmailNotVerified            = errors.New("identity provider did not verify the email")
)

// RefreshError describes a failed refresh_token grant. It matches
// ErrRefreshAccessToken and the underlying cause under errors.Is.
type RefreshError struct {
	StatusCode int
	Code       string
	Err        error
}

func (e *RefreshError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Code != "":
		return fmt.Sprintf("refresh access token: provider returned %d (%s)", e.StatusCode, e.Code)
	case e.StatusCode > 0:
		return fmt.Sprintf("refresh access token: provider returned %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("refresh access token: %v", e.Err)
	}
	return ErrRefreshAccessToken.Error()
}

func (e *RefreshError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRefreshAccessToken}
	}
	return []error{ErrRefreshAccessToken, e.Err}
}
