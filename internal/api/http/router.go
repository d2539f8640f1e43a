package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sme-router/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Requests     *handlers.RequestsHandler
	Tickets      *handlers.TicketsHandler
	Experts      *handlers.ExpertsHandler
	ServiceToken string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", ServiceTokenAuth(cfg.ServiceToken))

	api.Post("/requests", cfg.Requests.Submit)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Post("/tickets/:id/claim", cfg.Tickets.Claim)
	api.Post("/tickets/:id/resolve", cfg.Tickets.Resolve)
	api.Post("/tickets/:id/cancel", cfg.Tickets.Cancel)
	api.Post("/tickets/:id/hunt", cfg.Tickets.StartHunt)

	api.Get("/experts", cfg.Experts.ListExperts)
	api.Get("/experts/:id", cfg.Experts.GetExpert)
	api.Put("/experts/:id", cfg.Experts.UpsertExpert)
	api.Patch("/experts/:id/availability", cfg.Experts.SetAvailability)

	api.Get("/users/:id/priority", cfg.Experts.GetUserPriority)
	api.Put("/users/:id/priority", cfg.Experts.SetUserPriority)
}
