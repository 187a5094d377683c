package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hotel-booking/internal/api/dto"
	"github.com/spec-kit/hotel-booking/internal/auth"
	"github.com/spec-kit/hotel-booking/internal/service"
	"github.com/spec-kit/hotel-booking/pkg/util/errorutil"
)

// AccountHandler serves guarded account views.
type AccountHandler struct {
	auth *service.AuthService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(authService *service.AuthService) *AccountHandler {
	return &AccountHandler{auth: authService}
}

// Profile handles GET /api/users/:id/profile. Routed behind RequireSelfOrRole.
func (h *AccountHandler) Profile(c *fiber.Ctx) error {
	user, err := h.auth.User(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileResponse(*user)})
}

// AdminDashboard handles GET /api/admin/dashboard. Routed behind the admin guard.
func (h *AccountHandler) AdminDashboard(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return errorutil.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"admin":      dto.NewUserResponse(session.Claims),
			"expires_at": session.ExpiresAt,
		},
	})
}
