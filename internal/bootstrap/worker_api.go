package bootstrap

import (
	"strings"

	"intake_server/adapter/in/http"
	"intake_server/config"
	"intake_server/infra/middleware"
	"intake_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI builds the Fiber app over already-initialized dependencies.
func NewAPI(cfg *config.Config, deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),

		// go-json for request and response bodies
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// hard limit; MaxBodySize answers with a structured 413 below it
		BodyLimit: cfg.MaxBodyBytes * 2,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())         // 1. Panic recovery
	app.Use(middleware.RequestID())       // 2. Request ID
	app.Use(middleware.SecurityHeaders()) // 3. Security headers
	app.Use(middleware.RequestLogger())   // 4. Request logging

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "*" && cfg.IsProduction() {
		allowOrigins = ""
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining",
		MaxAge:        86400,
	}))

	// Health, readiness and metrics (no rate limit)
	healthHandler := http.NewHealthHandlerWithDeps(deps.DB, deps.Redis)
	healthHandler.Register(app)

	api := app.Group("/api/v1")
	api.Use(middleware.NewRateLimiter(cfg.RateLimitPerMin, 0).Handler())
	api.Use(middleware.RequireJSON())
	api.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))

	var queue http.EmailQueue
	if deps.Producer != nil {
		queue = deps.Producer
	}
	var claims http.IdempotencyStore
	if deps.RedisCache != nil {
		claims = deps.RedisCache
	}

	intakeHandler := http.NewIntakeHandler(deps.IntakeService, queue, claims)
	intakeHandler.Register(api)

	extractionHandler := http.NewExtractionHandler(deps.Pipeline)
	extractionHandler.Register(api)

	logger.Info("API server initialized successfully")
	return app
}
