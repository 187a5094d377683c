package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hotel-booking/internal/domain"
	"github.com/spec-kit/hotel-booking/pkg/util/errorutil"
)

// RequireRole reports whether the session carries exactly role.
func RequireRole(session *domain.SessionToken, role domain.Role) bool {
	return session != nil && session.Claims.Role == role
}

// IsSelf reports whether the session belongs to subjectID.
func IsSelf(session *domain.SessionToken, subjectID string) bool {
	return session != nil && subjectID != "" && session.Claims.ID == subjectID
}

// RequireSession ensures a session was resolved for the request.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return errorutil.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRoleMiddleware ensures the session has the given role.
func RequireRoleMiddleware(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return errorutil.NewUnauthorized("authentication required")
		}
		if !RequireRole(session, role) {
			return errorutil.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireSelfOrRole allows the owner named by the route param, or any session with role.
func RequireSelfOrRole(param string, role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return errorutil.NewUnauthorized("authentication required")
		}
		if !IsSelf(session, c.Params(param)) && !RequireRole(session, role) {
			return errorutil.NewForbidden("not allowed for this account")
		}
		return c.Next()
	}
}
