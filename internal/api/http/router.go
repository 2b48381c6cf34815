package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/outletops/maintenance-tickets/internal/api/http/handlers"
	"github.com/outletops/maintenance-tickets/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	OutletTickets  *handlers.OutletTicketsHandler
	AdminTickets   *handlers.AdminTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	signedIn := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	signedIn.Get("/session", cfg.Auth.Session)
	signedIn.Post("/logout", cfg.Auth.Logout)

	outlet := app.Group("/outlet", cfg.AuthMiddleware.Handle, auth.RequireOutlet())
	outlet.Post("/tickets", cfg.OutletTickets.CreateTicket)
	outlet.Get("/tickets", cfg.OutletTickets.ListTickets)
	outlet.Get("/tickets/summary", cfg.OutletTickets.Summary)
	outlet.Post("/tickets/:id/confirm", cfg.OutletTickets.ConfirmTicket)
	outlet.Post("/tickets/:id/images", cfg.OutletTickets.UploadImage)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/tickets", cfg.AdminTickets.ListTickets)
	admin.Get("/tickets/summary", cfg.AdminTickets.Summary)
	admin.Get("/tickets/export", cfg.AdminTickets.Export)
	admin.Get("/tickets/:id/history", cfg.AdminTickets.History)
	admin.Patch("/tickets/:id/status", cfg.AdminTickets.UpdateStatus)
	admin.Delete("/tickets/:id", cfg.AdminTickets.DeleteTicket)
}
