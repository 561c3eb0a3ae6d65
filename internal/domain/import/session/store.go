// Package session persists import sessions as JSON files with sliding
// expiration. One file per session keeps the admin tool free of any
// session table while staying inspectable on disk.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campaignops/mediaplanner/internal/domain/import/mapper"
	"github.com/campaignops/mediaplanner/internal/domain/import/validator"
	"github.com/campaignops/mediaplanner/internal/domain/masterdata"
)

// Status is the lifecycle state of an import session
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploaded  Status = "uploaded"
	StatusValidated Status = "validated"
	StatusImporting Status = "importing"
	StatusImported  Status = "imported"
	StatusError     Status = "error"
)

// ErrNotFound is returned when a session does not exist or has expired
var ErrNotFound = errors.New("session not found")

// Progress tracks a running commit for polling clients
type Progress struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Percentage  int    `json:"percentage"`
	LastMessage string `json:"lastMessage"`
}

// Session is one import attempt, from upload through commit
type Session struct {
	ID             string                     `json:"id"`
	FileName       string                     `json:"fileName"`
	FileSize       int64                      `json:"fileSize"`
	FilePath       string                     `json:"filePath"`
	Country        string                     `json:"country"`
	FinancialCycle string                     `json:"financialCycle"`
	BusinessUnit   string                     `json:"businessUnit"`
	RecordCount    int                        `json:"recordCount"`
	CreatedAt      time.Time                  `json:"createdAt"`
	ExpiresAt      time.Time                  `json:"expiresAt"`
	LastAccessedAt time.Time                  `json:"lastAccessedAt"`
	Status         Status                     `json:"status"`
	FieldMappings  mapper.FieldMapping        `json:"fieldMappings"`
	MasterData     *masterdata.MasterData     `json:"masterData,omitempty"`
	Records        []mapper.TransformedRecord `json:"records"`
	Validation     *validator.Result          `json:"validation,omitempty"`
	Progress       *Progress                  `json:"progress,omitempty"`
}

// CleanupStats summarizes a cleanup pass
type CleanupStats struct {
	Scanned  int
	Removed  int
	Migrated int
	Errored  int
}

// Store is a file-backed session store
type Store struct {
	dir     string
	timeout time.Duration
	logger  *slog.Logger
	mu      sync.Mutex
	now     func() time.Time
}

// NewStore creates a store rooted at dir with the given session timeout
func NewStore(dir string, timeoutHours int, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{
		dir:     dir,
		timeout: time.Duration(timeoutHours) * time.Hour,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// NewID generates a new session id
func NewID() string {
	return uuid.New().String()
}

// Create initializes and persists a new session. Timestamps and status are
// set here regardless of what the caller filled in.
func (s *Store) Create(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = NewID()
	}
	now := s.now()
	sess.CreatedAt = now
	sess.LastAccessedAt = now
	sess.ExpiresAt = now.Add(s.timeout)
	if sess.Status == "" {
		sess.Status = StatusPending
	}

	return s.write(sess)
}

// Save persists the current state of a session without touching its expiry
func (s *Store) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(sess)
}

// GetValid loads a session, expiring it if overdue. A successful read
// refreshes lastAccessedAt and expiresAt (sliding expiration) and persists
// the refresh before returning.
func (s *Store) GetValid(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.read(id)
	if err != nil {
		return nil, err
	}

	now := s.now()

	// Sessions written before expiry tracking existed lack the expiration
	// fields; backfill them from createdAt and persist the migration.
	if sess.ExpiresAt.IsZero() {
		sess.LastAccessedAt = sess.CreatedAt
		sess.ExpiresAt = sess.CreatedAt.Add(s.timeout)
		if err := s.write(sess); err != nil {
			return nil, fmt.Errorf("failed to migrate legacy session: %w", err)
		}
	}

	if now.After(sess.ExpiresAt) {
		if err := s.remove(id); err != nil {
			s.logger.Warn("failed to remove expired session", slog.String("id", id), slog.Any("error", err))
		}
		return nil, ErrNotFound
	}

	sess.LastAccessedAt = now
	sess.ExpiresAt = now.Add(s.timeout)
	if err := s.write(sess); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	return sess, nil
}

// Delete removes a session file
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(id)
}

// Count returns the number of stored sessions
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read session directory: %w", err)
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			n++
		}
	}
	return n, nil
}

// CleanupExpired scans all sessions and removes expired ones. Legacy
// sessions are migrated in place. A corrupt file is logged and counted but
// never aborts the scan.
func (s *Store) CleanupExpired() CleanupStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := CleanupStats{}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("failed to scan session directory", slog.Any("error", err))
		stats.Errored++
		return stats
	}

	now := s.now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		stats.Scanned++

		id := strings.TrimSuffix(entry.Name(), ".json")
		sess, err := s.read(id)
		if err != nil {
			s.logger.Warn("skipping unreadable session file",
				slog.String("file", entry.Name()), slog.Any("error", err))
			stats.Errored++
			continue
		}

		if sess.ExpiresAt.IsZero() {
			sess.LastAccessedAt = sess.CreatedAt
			sess.ExpiresAt = sess.CreatedAt.Add(s.timeout)
			if err := s.write(sess); err != nil {
				s.logger.Warn("failed to migrate legacy session",
					slog.String("id", id), slog.Any("error", err))
				stats.Errored++
				continue
			}
			stats.Migrated++
		}

		if now.After(sess.ExpiresAt) {
			if err := s.remove(id); err != nil {
				s.logger.Warn("failed to remove expired session",
					slog.String("id", id), slog.Any("error", err))
				stats.Errored++
				continue
			}
			stats.Removed++
		}
	}

	return stats
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) read(id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *Store) write(sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}
	if err := os.WriteFile(s.path(sess.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *Store) remove(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}
