// Package storage provides file storage for uploaded import files.
package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"` // Internal storage path
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines the interface for upload storage operations. Files are
// grouped by the import session that produced them.
type Storage interface {
	// Save stores the raw uploaded file for a session
	Save(ctx context.Context, sessionID string, filename string, data []byte) (*FileInfo, error)

	// Open returns a reader for a session's stored file
	Open(ctx context.Context, sessionID string, filename string) (io.ReadCloser, error)

	// DeleteSession removes all files stored for a session
	DeleteSession(ctx context.Context, sessionID string) error
}
