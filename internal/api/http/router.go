package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/api/http/handlers"
	"github.com/spec-kit/desk-relay/internal/auth"
	"github.com/spec-kit/desk-relay/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Extraction     *handlers.ExtractionHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// ServerConfig describes the fiber app itself.
type ServerConfig struct {
	AppName    string
	BodyLimit  int
	Middleware MiddlewareConfig
}

// NewServer builds the fiber app with middlewares and routes attached.
func NewServer(cfg ServerConfig, logger *zap.Logger, metrics *observability.Metrics, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, cfg.Middleware)
	RegisterRoutes(app, routes)
	return app
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/process-text", cfg.AuthMiddleware.Handle, cfg.Extraction.ProcessText)
	app.Post("/api/create-ticket", cfg.AuthMiddleware.Handle, cfg.Tickets.CreateTicket)
}
