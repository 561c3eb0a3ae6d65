// Command api runs the media-plan administration HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/campaignops/mediaplanner/internal/app"
	"github.com/campaignops/mediaplanner/pkg/config"
)

func main() {
	// Best effort, the environment wins over the file
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	if err := deps.Scheduler.Start(cfg.Sessions.CleanupIntervalHours); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	router := app.NewRouter(app.RouterConfig{
		ImportHandler:     deps.ImportHandler,
		GamePlanHandler:   deps.GamePlanHandler,
		MasterDataHandler: deps.MasterDataHandler,
		AllowedOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:      float64(cfg.Server.RateLimitPerSecond),
		RateLimitBurst:    cfg.Server.RateLimitBurst,
		Logger:            logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute, // large exports
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
