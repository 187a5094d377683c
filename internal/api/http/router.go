package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/hotel-booking/internal/api/http/handlers"
	"github.com/spec-kit/hotel-booking/internal/auth"
	"github.com/spec-kit/hotel-booking/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Account  *handlers.AccountHandler
	Accessor *auth.SessionAccessor
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/oauth/login", cfg.Auth.OAuthLogin)
	authGroup.Get("/oauth/callback", cfg.Auth.OAuthCallback)
	authGroup.Get("/session", cfg.Auth.Session)
	authGroup.Post("/logout", cfg.Auth.Logout)

	api := app.Group("/api", cfg.Accessor.Handle, auth.RequireSession())
	api.Get("/users/:id/profile", auth.RequireSelfOrRole("id", domain.RoleAdmin), cfg.Account.Profile)
	api.Get("/admin/dashboard", auth.RequireRoleMiddleware(domain.RoleAdmin), cfg.Account.AdminDashboard)
}
