package dto

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

// LoginRequest payload for credential login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate checks the payload shape. Credentials themselves are checked by the verifier.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 128)),
	)
}

// ValidationDetails flattens ozzo field errors for the error envelope.
func ValidationDetails(err error) map[string]any {
	details := map[string]any{}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, fieldErr := range fieldErrs {
			details[field] = fieldErr.Error()
		}
	}
	return details
}

// UserResponse is the public projection of identity claims.
type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location,omitempty"`
	Role     string `json:"role"`
}

// SessionResponse describes the caller's current session.
type SessionResponse struct {
	User                 UserResponse `json:"user"`
	ExpiresAt            time.Time    `json:"expires_at"`
	AccessTokenExpiresAt *time.Time   `json:"access_token_expires_at,omitempty"`
	Error                string       `json:"error,omitempty"`
}

// LoginResponse is returned after a successful login. Token is the signed
// session itself, so it embeds whatever provider tokens the session holds.
type LoginResponse struct {
	Token   string          `json:"token"`
	Session SessionResponse `json:"session"`
}

// ProfileResponse is the stored account view.
type ProfileResponse struct {
	UserResponse
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse projects claims.
func NewUserResponse(claims domain.IdentityClaims) UserResponse {
	return UserResponse{
		ID:       claims.ID,
		Name:     claims.Name,
		Email:    claims.Email,
		Location: claims.Location,
		Role:     string(claims.Role),
	}
}

// NewSessionResponse projects a session. The view omits provider tokens; they
// travel only inside the signed session token.
func NewSessionResponse(session domain.SessionToken) SessionResponse {
	resp := SessionResponse{
		User:      NewUserResponse(session.Claims),
		ExpiresAt: session.ExpiresAt,
		Error:     session.Error,
	}
	if !session.AccessTokenExpiresAt.IsZero() {
		at := session.AccessTokenExpiresAt
		resp.AccessTokenExpiresAt = &at
	}
	return resp
}

// NewProfileResponse projects a stored user.
func NewProfileResponse(user domain.User) ProfileResponse {
	return ProfileResponse{
		UserResponse: UserResponse{
			ID:       user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Location: user.Location,
			Role:     string(user.Role),
		},
		Provider:  user.Provider,
		CreatedAt: user.CreatedAt,
	}
}
