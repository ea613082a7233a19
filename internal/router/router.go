package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/avalos-dev/assignment-reviewer/internal/config"
	"github.com/avalos-dev/assignment-reviewer/internal/handler"
	"github.com/avalos-dev/assignment-reviewer/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradingHandler *handler.GradingHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(api)
	}

	app.Get("/metrics", observability.MetricsHandler())
}
