package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Pilmik/order-book-parser/src/config"
	"github.com/Pilmik/order-book-parser/src/handlers"
	"github.com/Pilmik/order-book-parser/src/metrics"
	"github.com/Pilmik/order-book-parser/src/middleware"
)

func SetupRoutes(app *fiber.App, cfg config.Config, bookHandler *handlers.BookHandler, m *metrics.Metrics) *middleware.ServiceAvailability {
	app.Use(middleware.RequestLogger(cfg.Logging.RequestLogging, m))

	serviceAvailability := middleware.NewServiceAvailability(
		cfg.Server.MaintenanceMode, cfg.Server.MaxConcurrentRequests, m)
	app.Use(serviceAvailability.Middleware())

	api := app.Group("/api/v1")

	if !cfg.RateLimit.Disabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
		api.Use(rateLimiter.Middleware())
	}

	api.Post("/orderbook/parse", bookHandler.ParseSnapshot)
	api.Post("/orders/market", bookHandler.ExecuteMarketOrder)

	app.Get("/health", bookHandler.HealthCheck)
	app.Get("/metrics", m.Handler())

	return serviceAvailability
}
