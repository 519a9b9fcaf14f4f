package bootstrap

import (
	"context"
	"strings"
	"time"

	"complaint_server/adapter/in/http"
	"complaint_server/config"
	"complaint_server/core/port/in"
	"complaint_server/infra/middleware"
	"complaint_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI connects all dependencies and builds the HTTP application.
func NewAPI(ctx context.Context, cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	health := http.NewHealthHandler(deps.DB, deps.Redis)
	app, stop := NewApp(cfg, deps.ComplaintService, health)

	return app, func() {
		stop()
		cleanup()
	}, nil
}

// NewApp builds the fiber application around service. The returned func
// stops background middleware goroutines.
func NewApp(cfg *config.Config, service in.ComplaintService, health *http.HealthHandler) (*fiber.App, func()) {
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 64 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:               "complaint-server",
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:    bodyLimit,
		ProxyHeader:  cfg.ProxyHeader,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset,Retry-After",
		MaxAge:        86400,
	}))

	if health != nil {
		health.Register(app)
	}

	stop := func() {}
	var createMiddleware []fiber.Handler
	if cfg.CreateRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.CreateRateLimit, time.Minute)
		createMiddleware = append(createMiddleware, limiter.Handler())
		stop = limiter.Stop
	}

	api := app.Group(cfg.APIPrefix, middleware.NoCache(), middleware.ValidateContentType())
	http.NewComplaintHandler(service).Register(api, createMiddleware...)

	return app, stop
}
