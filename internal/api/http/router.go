package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	History        *handlers.HistoryHandler
	Auth           *handlers.AuthHandler
	Profiles       *handlers.ProfilesHandler
	Storage        *handlers.StorageHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics serves /metrics when set.
	Metrics fiber.Handler
	// IntakeLimiter guards anonymous writes when set.
	IntakeLimiter fiber.Handler
	// UploadLimiter guards blob uploads; IntakeLimiter is used when unset.
	UploadLimiter fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	limited := func(l, h fiber.Handler) []fiber.Handler {
		if l == nil {
			return []fiber.Handler{h}
		}
		return []fiber.Handler{l, h}
	}
	intake := func(h fiber.Handler) []fiber.Handler { return limited(cfg.IntakeLimiter, h) }
	uploadLimiter := cfg.UploadLimiter
	if uploadLimiter == nil {
		uploadLimiter = cfg.IntakeLimiter
	}
	requireSession := cfg.AuthMiddleware.Handle

	app.Post("/tickets", intake(cfg.Tickets.CreateTicket)...)
	app.Get("/tickets", requireSession, cfg.Tickets.ListTickets)
	app.Patch("/tickets/:id", requireSession, cfg.Tickets.UpdateTicket)
	if cfg.History != nil {
		app.Get("/tickets/:id/history", requireSession, cfg.History.List)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", intake(cfg.Auth.Login)...)
	authGroup.Post("/logout", requireSession, cfg.Auth.Logout)
	authGroup.Get("/me", requireSession, cfg.Auth.Me)

	app.Get("/profiles", requireSession, cfg.Profiles.Roster)

	app.Post("/storage/:bucket", limited(uploadLimiter, cfg.Storage.Upload)...)
	app.Get("/storage/:bucket/:name", cfg.Storage.Download)
}
