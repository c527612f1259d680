package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intake_server/config"
	"intake_server/internal/bootstrap"
	"intake_server/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Load .env file if exists (for local development)
	envErr := godotenv.Load()

	logger.Init(logger.Config{
		Level:   logger.ParseLevel(os.Getenv("LOG_LEVEL")),
		Service: "intake",
	})
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "all", "Run mode: api, worker, all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := bootstrap.NewDependencies(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	switch *mode {
	case "api":
		runAPI(ctx, cfg, deps)
	case "worker":
		runWorker(ctx, deps, true)
	case "all":
		workerDone := make(chan struct{})
		go func() {
			defer close(workerDone)
			runWorker(ctx, deps, false)
		}()
		runAPI(ctx, cfg, deps)
		stop()
		<-workerDone
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, deps *bootstrap.Dependencies) {
	app := bootstrap.NewAPI(cfg, deps)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Error shutting down: %v", err)
		} else {
			logger.Info("API server shut down gracefully")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// runWorker consumes the intake stream until ctx is cancelled. Without required,
// a worker that cannot start (no Redis) leaves the API running on its own.
func runWorker(ctx context.Context, deps *bootstrap.Dependencies, required bool) {
	worker, err := bootstrap.NewWorker(deps)
	if err != nil {
		if !required {
			logger.Warn("Worker disabled: %v", err)
			return
		}
		logger.Fatal("Failed to initialize worker: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(ctx); err != nil {
			logger.WithError(err).Error("Worker stopped")
		}
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
	}
	logger.Info("Shutting down worker (timeout: %v)...", shutdownTimeout)
	waitOrTimeout(done, "worker")
}

func waitOrTimeout(done <-chan struct{}, name string) {
	select {
	case <-done:
		logger.Info("%s shut down gracefully", name)
	case <-time.After(shutdownTimeout):
		logger.Warn("%s shutdown timed out, forcing exit", name)
		os.Exit(1)
	}
}
