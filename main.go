package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"complaint_server/config"
	"complaint_server/internal/bootstrap"
	"complaint_server/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "complaint-server",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "api", "Run mode: api, migrate, events")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Format:  cfg.LogFormat,
		Service: "complaint-" + *mode,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "api":
		runAPI(ctx, cfg)
	case "migrate":
		if err := bootstrap.Migrate(ctx, cfg); err != nil {
			logger.Fatal("Migration failed: %v", err)
		}
	case "events":
		runEvents(ctx, cfg)
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config) {
	app, cleanup, err := bootstrap.NewAPI(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize API: %v", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting API server on %s", cfg.Addr())
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server stopped: %v", err)
			cleanup()
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logger.Info("Shutting down API server (timeout: %v)...", cfg.ShutdownTimeout)
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Error("Error shutting down: %v", err)
		return
	}
	logger.Info("API server shut down gracefully")
}

func runEvents(ctx context.Context, cfg *config.Config) {
	w, cleanup, err := bootstrap.NewEventWorker(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize event worker: %v", err)
	}
	defer cleanup()

	logger.Info("Consuming complaint events from %s", cfg.EventsStream)
	if err := w.Run(ctx); err != nil {
		logger.Error("Event worker stopped: %v", err)
		return
	}
	logger.Info("Event worker shut down gracefully")
}
