package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

const sessionKey = "auth_session"

// SessionSource decodes raw tokens and re-signs refreshed sessions.
type SessionSource interface {
	DecodeSession(ctx context.Context, raw string) DecodeResult
	Reissue(session domain.SessionToken) (string, error)
}

// CookieSettings controls the session cookie.
type CookieSettings struct {
	Name   string
	Secure bool
}

// SessionAccessor resolves the caller's session once per request.
type SessionAccessor struct {
	source SessionSource
	cookie CookieSettings
	logger *zap.Logger
}

// sessionState memoizes the decode outcome, including "no session".
type sessionState struct {
	session *domain.SessionToken
}

// NewSessionAccessor constructs the accessor.
func NewSessionAccessor(source SessionSource, cookie CookieSettings, logger *zap.Logger) *SessionAccessor {
	if cookie.Name == "" {
		cookie.Name = "hotel_session"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionAccessor{source: source, cookie: cookie, logger: logger}
}

// Handle resolves the session for every request and never rejects; guards do that.
func (a *SessionAccessor) Handle(c *fiber.Ctx) error {
	a.Current(c)
	return c.Next()
}

// Current returns the caller's session or nil. Repeated calls within one
// request reuse the first decode.
func (a *SessionAccessor) Current(c *fiber.Ctx) *domain.SessionToken {
	if state, ok := c.Locals(sessionKey).(*sessionState); ok {
		return state.session
	}

	raw, fromCookie := a.rawToken(c)
	result := a.source.DecodeSession(c.UserContext(), raw)
	c.Locals(sessionKey, &sessionState{session: result.Session})

	switch {
	case !result.Authenticated() && raw != "" && fromCookie:
		a.ClearCookie(c)
	case result.Authenticated() && result.RefreshAttempted && fromCookie:
		signed, err := a.source.Reissue(*result.Session)
		if err != nil {
			a.logger.Error("reissue session failed", zap.Error(err))
			break
		}
		a.SetCookie(c, signed, result.Session.ExpiresAt)
	}
	return result.Session
}

// SetCookie writes the session cookie with the session's absolute expiry.
func (a *SessionAccessor) SetCookie(c *fiber.Ctx, raw string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    raw,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (a *SessionAccessor) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   a.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *SessionAccessor) rawToken(c *fiber.Ctx) (string, bool) {
	if raw := c.Cookies(a.cookie.Name); raw != "" {
		return raw, true
	}

	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1]), false
	}
	return "", false
}

// SessionFromContext returns the session resolved by SessionAccessor, if any.
func SessionFromContext(c *fiber.Ctx) (*domain.SessionToken, bool) {
	state, ok := c.Locals(sessionKey).(*sessionState)
	if !ok || state.session == nil {
		return nil, false
	}
	return state.session, true
}
