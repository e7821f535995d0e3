package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskops/ticket-desk/internal/api/http/handlers"
	"github.com/deskops/ticket-desk/internal/auth"
	"github.com/deskops/ticket-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Auth.Logout)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("", cfg.Tickets.SubmitTicket)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/tickets", cfg.Admin.ListTickets)
	admin.Post("/tickets/reload", cfg.Admin.Reload)
	admin.Get("/tickets/:id/history", cfg.Admin.History)
	admin.Put("/view", cfg.Admin.SetView)
	admin.Post("/view/sort", cfg.Admin.Sort)
	admin.Get("/events", cfg.Admin.Events)

	admin.Post("/session", cfg.Admin.OpenSession)
	admin.Get("/session", cfg.Admin.GetSession)
	admin.Patch("/session/draft", cfg.Admin.UpdateDraft)
	admin.Post("/session/reset", cfg.Admin.ResetDraft)
	admin.Post("/session/commit", cfg.Admin.Commit)
	admin.Delete("/session", cfg.Admin.CloseSession)
}
