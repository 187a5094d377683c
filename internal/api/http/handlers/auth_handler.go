package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/hotel-booking/internal/api/dto"
	"github.com/spec-kit/hotel-booking/internal/auth"
	"github.com/spec-kit/hotel-booking/internal/service"
	"github.com/spec-kit/hotel-booking/pkg/util/errorutil"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// AuthHandler exposes login, logout and session endpoints.
type AuthHandler struct {
	auth     *service.AuthService
	accessor *auth.SessionAccessor
	logger   *zap.Logger
	secure   bool
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, accessor *auth.SessionAccessor, secureCookies bool, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: authService, accessor: accessor, logger: logger, secure: secureCookies}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return errorutil.NewValidationError("invalid login payload", dto.ValidationDetails(err))
	}

	raw, session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			return errorutil.NewInvalidCredentials(err)
		}
		return errorutil.NewInternalError(err)
	}

	h.accessor.SetCookie(c, raw, session.ExpiresAt)
	return c.JSON(fiber.Map{
		"data": dto.LoginResponse{Token: raw, Session: dto.NewSessionResponse(session)},
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.auth.Logout(c.UserContext(), h.accessor.Current(c))
	h.accessor.ClearCookie(c)
	return c.SendStatus(http.StatusNoContent)
}

// Session handles GET /auth/session. An anonymous caller gets a null session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	session := h.accessor.Current(c)
	if session == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(*session)})
}

// OAuthLogin handles GET /auth/oauth/login by redirecting to the provider.
func (h *AuthHandler) OAuthLogin(c *fiber.Ctx) error {
	state := uuid.NewString()
	target, err := h.auth.AuthorizeURL(state)
	if err != nil {
		return errorutil.NewServiceUnavailable("external login is not configured", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/oauth",
		Expires:  time.Now().Add(oauthStateTTL),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(target, http.StatusFound)
}

// OAuthCallback handles GET /auth/oauth/callback.
func (h *AuthHandler) OAuthCallback(c *fiber.Ctx) error {
	if !h.auth.ExternalLoginEnabled() {
		return errorutil.NewServiceUnavailable("external login is not configured", auth.ErrProviderNotConfigured)
	}

	expected := c.Cookies(oauthStateCookie)
	c.ClearCookie(oauthStateCookie)
	if expected == "" || c.Query("state") != expected {
		return errorutil.NewUnauthorized("invalid oauth state")
	}
	if providerErr := c.Query("error"); providerErr != "" {
		return errorutil.NewUnauthorized("provider denied login: " + providerErr)
	}
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(http.StatusBadRequest, "missing authorization code")
	}

	raw, session, err := h.auth.CompleteExternalLogin(c.UserContext(), code)
	if err != nil {
		h.logger.Warn("external login failed", zap.Error(err))
		if errors.Is(err, auth.ErrIdentityProviderUnavailable) {
			return errorutil.NewServiceUnavailable("identity provider unavailable", err)
		}
		return errorutil.NewUnauthorized("external login failed")
	}

	h.accessor.SetCookie(c, raw, session.ExpiresAt)
	return c.Redirect("/", http.StatusSeeOther)
}
