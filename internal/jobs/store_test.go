package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SetGetDelete(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	job := &Job{
		ID:        "1700000000000-abc12345",
		Status:    StatusPending,
		Input:     "https://example.com/news",
		Provider:  "elevenlabs",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Set(ctx, job))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, "https://example.com/news", got.Input)

	require.NoError(t, store.Delete(ctx, job.ID))
	_, err = store.Get(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting again is a no-op
	assert.NoError(t, store.Delete(ctx, job.ID))
}

func TestFileStore_GetMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_List(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &Job{ID: "a", Status: StatusPending, CreatedAt: time.Now()}))
	require.NoError(t, store.Set(ctx, &Job{ID: "b", Status: StatusCompleted, CreatedAt: time.Now()}))

	// non-record files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	listed, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestFileStore_SweepRemovesOnlyExpired(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &Job{ID: "old", CreatedAt: time.Now()}))
	require.NoError(t, store.Set(ctx, &Job{ID: "fresh", CreatedAt: time.Now()}))

	// age the first record past the TTL
	oldPath := filepath.Join(dir, "old.json")
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	removed := store.Sweep(ctx)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
