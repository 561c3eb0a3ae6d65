// Command cleanup removes expired import sessions. Intended for operators
// and external schedulers; the api server also runs this hourly.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/campaignops/mediaplanner/internal/domain/import/session"
	"github.com/campaignops/mediaplanner/pkg/config"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := session.NewStore(cfg.Sessions.Dir, cfg.Sessions.TimeoutHours, logger)
	if err != nil {
		logger.Error("failed to open session store", slog.Any("error", err))
		os.Exit(1)
	}

	before, err := store.Count()
	if err != nil {
		logger.Error("failed to count sessions", slog.Any("error", err))
		os.Exit(1)
	}

	stats := store.CleanupExpired()

	after, err := store.Count()
	if err != nil {
		logger.Error("failed to count sessions", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("session cleanup finished",
		slog.Int("before", before),
		slog.Int("after", after),
		slog.Int("scanned", stats.Scanned),
		slog.Int("removed", stats.Removed),
		slog.Int("migrated", stats.Migrated),
		slog.Int("errored", stats.Errored),
	)

	if stats.Errored > 0 {
		os.Exit(1)
	}
}
