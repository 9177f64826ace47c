package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/shipment-tracker/internal/api/http/handlers"
	"github.com/spec-kit/shipment-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Shipments      *handlers.ShipmentsHandler
	Gps            *handlers.GpsHandler
	Tracking       *handlers.TrackingHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Public tracking lookup. No authentication on purpose.
	app.Get("/track/:code", cfg.Tracking.Track)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	account := authGroup.Group("", cfg.AuthMiddleware.Handle)
	account.Get("/me", cfg.Users.Me)
	account.Put("/me", cfg.Users.UpdateMe)
	account.Post("/password/change", cfg.Users.ChangePassword)
	account.Get("/stats", cfg.Users.Stats)
	account.Delete("/users/:id", cfg.Users.Deactivate)

	shipments := app.Group("/shipments", cfg.AuthMiddleware.Handle)
	shipments.Post("/", cfg.Shipments.Create)
	shipments.Get("/", cfg.Shipments.List)
	shipments.Get("/:id", cfg.Shipments.Get)
	shipments.Post("/:id/assign", cfg.Shipments.Assign)
	shipments.Post("/:id/advance", cfg.Shipments.Advance)
	shipments.Post("/:id/cancel", cfg.Shipments.Cancel)
	shipments.Get("/:id/history", cfg.Shipments.History)

	gps := app.Group("/gps", cfg.AuthMiddleware.Handle)
	gps.Post("/fixes", cfg.Gps.RecordFix)
	gps.Get("/live", cfg.Gps.Live)
	gps.Get("/shipments/:id/current", cfg.Gps.Current)
	gps.Get("/shipments/:id/fixes", cfg.Gps.Fixes)
}
