package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save stores the raw uploaded file for a session
func (s *LocalStorage) Save(ctx context.Context, sessionID string, filename string, data []byte) (*FileInfo, error) {
	sessionDir := filepath.Join(s.basePath, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	safeFilename := sanitizeFilename(filename)
	filePath := filepath.Join(sessionDir, safeFilename)

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &FileInfo{
		Name:      filename,
		Size:      int64(len(data)),
		Path:      filePath,
		CreatedAt: time.Now(),
	}, nil
}

// Open returns a reader for a session's stored file
func (s *LocalStorage) Open(ctx context.Context, sessionID string, filename string) (io.ReadCloser, error) {
	filePath := filepath.Join(s.basePath, sessionID, sanitizeFilename(filename))
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// DeleteSession removes all files stored for a session
func (s *LocalStorage) DeleteSession(ctx context.Context, sessionID string) error {
	sessionDir := filepath.Join(s.basePath, sessionID)
	if err := os.RemoveAll(sessionDir); err != nil {
		return fmt.Errorf("failed to delete session files: %w", err)
	}
	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
