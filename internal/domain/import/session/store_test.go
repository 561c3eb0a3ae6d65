package session

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()

	store, err := NewStore(t.TempDir(), 4, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestCreateSetsLifecycleFields(t *testing.T) {
	store, now := newTestStore(t)

	sess := &Session{FileName: "plans.csv"}
	require.NoError(t, store.Create(sess))

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, *now, sess.CreatedAt)
	assert.Equal(t, *now, sess.LastAccessedAt)
	assert.Equal(t, now.Add(4*time.Hour), sess.ExpiresAt)
	assert.Equal(t, StatusPending, sess.Status)
}

func TestGetValidSlidesExpiration(t *testing.T) {
	store, now := newTestStore(t)

	sess := &Session{FileName: "plans.csv"}
	require.NoError(t, store.Create(sess))

	*now = now.Add(2 * time.Hour)
	got, err := store.GetValid(sess.ID)
	require.NoError(t, err)

	assert.Equal(t, *now, got.LastAccessedAt)
	assert.Equal(t, now.Add(4*time.Hour), got.ExpiresAt)

	// The refresh must be persisted, not just returned.
	reread, err := store.read(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ExpiresAt, reread.ExpiresAt)
}

func TestGetValidExpiredSessionIsRemoved(t *testing.T) {
	store, now := newTestStore(t)

	sess := &Session{FileName: "plans.csv"}
	require.NoError(t, store.Create(sess))

	*now = now.Add(5 * time.Hour)
	_, err := store.GetValid(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetValidUnknownID(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetValid("no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetValidMigratesLegacySession(t *testing.T) {
	store, now := newTestStore(t)

	// Session written before expiry tracking: no expiresAt on disk.
	legacy := &Session{ID: NewID(), FileName: "old.csv", CreatedAt: now.Add(-time.Hour)}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, legacy.ID+".json"), data, 0o644))

	got, err := store.GetValid(legacy.ID)
	require.NoError(t, err)

	// Backfilled from createdAt, then refreshed by the read itself.
	assert.Equal(t, now.Add(4*time.Hour), got.ExpiresAt)
	assert.Equal(t, *now, got.LastAccessedAt)
}

func TestCleanupExpired(t *testing.T) {
	store, now := newTestStore(t)

	fresh := &Session{FileName: "fresh.csv"}
	require.NoError(t, store.Create(fresh))

	stale := &Session{FileName: "stale.csv"}
	require.NoError(t, store.Create(stale))

	legacy := &Session{ID: NewID(), FileName: "legacy.csv", CreatedAt: *now}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, legacy.ID+".json"), data, 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "corrupt.json"), []byte("{not json"), 0o644))

	// Age the stale session past its expiry without touching the others.
	staleOnDisk, err := store.read(stale.ID)
	require.NoError(t, err)
	staleOnDisk.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, store.write(staleOnDisk))

	stats := store.CleanupExpired()

	assert.Equal(t, 4, stats.Scanned)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, stats.Migrated)
	assert.Equal(t, 1, stats.Errored)

	_, err = store.read(fresh.ID)
	assert.NoError(t, err)
	_, err = store.read(stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.read(legacy.ID)
	assert.NoError(t, err)

	// A second pass finds nothing new to remove.
	again := store.CleanupExpired()
	assert.Equal(t, 0, again.Removed)
	assert.Equal(t, 0, again.Migrated)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)

	sess := &Session{FileName: "plans.csv"}
	require.NoError(t, store.Create(sess))

	require.NoError(t, store.Delete(sess.ID))
	assert.NoError(t, store.Delete(sess.ID))
}
