package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/facemark/internal/api"
	"github.com/saturnino-fabrica-de-software/facemark/internal/config"
	"github.com/saturnino-fabrica-de-software/facemark/internal/face"
	"github.com/saturnino-fabrica-de-software/facemark/internal/model"
	"github.com/saturnino-fabrica-de-software/facemark/internal/render"
	"github.com/saturnino-fabrica-de-software/facemark/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment, cfg.LogFile)
	slog.SetDefault(logger)

	logger.Info("starting Facemark API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("face_locator", cfg.FaceLocator),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Provision the model in the background; requests get 503 until it is ready
	fetcher := model.NewFetcher(model.FetcherConfig{
		Timeout:    cfg.ModelDownloadTimeout,
		RetryCount: cfg.ModelRetryCount,
	})
	provisioner := model.NewProvisioner(face.Assets(cfg), fetcher, face.NewLoader(cfg), logger)
	provisioner.Start(ctx)

	landmarkService := service.NewLandmarkService(provisioner, render.New())

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Service:   landmarkService,
		Readiness: provisioner,
	}, api.Config{
		Host:           fmt.Sprintf("localhost:%d", cfg.Port),
		StaticDir:      cfg.StaticDir,
		BodyLimit:      cfg.MaxUploadBytes(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	// Give an in-flight download a moment to notice the cancelled context
	select {
	case <-provisioner.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("model provisioning did not stop in time")
	}

	logger.Info("server stopped")
	return nil
}
