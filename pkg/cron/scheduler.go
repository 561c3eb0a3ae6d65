// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/campaignops/mediaplanner/internal/domain/import/session"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	store  *session.Store
	logger *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(store *session.Store, logger *slog.Logger) *Scheduler {
	// Standard 5-field format, no seconds
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:   c,
		store:  store,
		logger: logger,
	}
}

// Start begins scheduled jobs. Expired session cleanup runs every
// intervalHours hours.
func (s *Scheduler) Start(intervalHours int) error {
	if intervalHours < 1 {
		intervalHours = 1
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("0 */%d * * *", intervalHours), s.cleanupSessions)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers session cleanup (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.cleanupSessions()
}

// cleanupSessions removes expired import sessions.
func (s *Scheduler) cleanupSessions() {
	s.logger.Info("starting session cleanup")

	stats := s.store.CleanupExpired()

	s.logger.Info("session cleanup completed",
		slog.Int("scanned", stats.Scanned),
		slog.Int("removed", stats.Removed),
		slog.Int("migrated", stats.Migrated),
		slog.Int("errored", stats.Errored),
	)
}
