package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"snapfetch/internal/common"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ContentStore {
	t.Helper()
	store, err := NewContentStore("testsource", t.TempDir(), "json", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func countBlobFiles(t *testing.T, store *ContentStore) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(store.contentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func TestContentStore_StoreNewContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte(`{"status":"ok"}`)

	hash, isNew, err := store.Store(ctx, content, "https://example.com/status.json", "application/json")
	require.NoError(t, err)
	assert.True(t, isNew)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)

	rec, err := store.GetRecord(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, hash, rec.ContentHash)
	assert.Equal(t, int64(len(content)), rec.SizeBytes)
	assert.Equal(t, "application/json", rec.ContentType)
	assert.Equal(t, "https://example.com/status.json", rec.SourceURL)
	assert.Equal(t, rec.FirstSeen, rec.LastSeen)

	// The blob round-trips to the same digest.
	stored, err := os.ReadFile(rec.FilePath)
	require.NoError(t, err)
	roundTrip := sha256.Sum256(stored)
	assert.Equal(t, hash, hex.EncodeToString(roundTrip[:]))
}

func TestContentStore_RepeatSighting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("snapshot bytes")

	hash1, isNew, err := store.Store(ctx, content, "https://example.com/cam1.jpg", "image/jpeg")
	require.NoError(t, err)
	require.True(t, isNew)
	rec1, err := store.GetRecord(ctx, hash1)
	require.NoError(t, err)

	hash2, isNew, err := store.Store(ctx, content, "https://example.com/cam1.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, hash1, hash2)

	rec2, err := store.GetRecord(ctx, hash2)
	require.NoError(t, err)
	assert.True(t, rec2.FirstSeen.Equal(rec1.FirstSeen), "first_seen must not change on re-sighting")
	assert.False(t, rec2.LastSeen.Before(rec1.LastSeen), "last_seen must be monotonically non-decreasing")

	// Exactly one blob on disk; the second call performs zero filesystem writes.
	assert.Equal(t, 1, countBlobFiles(t, store))

	count, err := store.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestContentStore_RetainsFirstProvenance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("shared payload")

	hash, _, err := store.Store(ctx, content, "https://a.example.com/feed", "application/json")
	require.NoError(t, err)

	// Identical bytes from a different URL with a different reported type.
	_, isNew, err := store.Store(ctx, content, "https://b.example.com/feed", "text/plain")
	require.NoError(t, err)
	assert.False(t, isNew)

	rec, err := store.GetRecord(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example.com/feed", rec.SourceURL)
	assert.Equal(t, "application/json", rec.ContentType)
}

func TestContentStore_ConcurrentDistinctPayloads(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := []byte(fmt.Sprintf("payload-%d", i))
			_, _, errs[i] = store.Store(ctx, content, "https://example.com/feed", "text/plain")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "store call %d failed", i)
	}

	count, err := store.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count, "every distinct payload must produce exactly one record")
	assert.Equal(t, n, countBlobFiles(t, store))
}

func TestContentStore_ConcurrentIdenticalPayloads(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("raced payload")
	const n = 10

	var wg sync.WaitGroup
	hashes := make([]string, n)
	newFlags := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hash, isNew, err := store.Store(ctx, content, "https://example.com/feed", "text/plain")
			hashes[i], newFlags[i], errs[i] = hash, isNew, err
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "store call %d failed", i)
		if newFlags[i] {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent store of the same novel payload may report isNew")

	count, err := store.RecordCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The surviving record must point at a blob that is still on disk.
	rec, err := store.GetRecord(ctx, hashes[0])
	require.NoError(t, err)
	_, statErr := os.Stat(rec.FilePath)
	assert.NoError(t, statErr, "record must never point at a missing blob")
}

// Replays the interleaving of two Store calls for the same novel bytes within
// the same second: both derive the same blob path, the first write creates
// the file, the second finds it already present and wins the record insert.
// The losing call must not delete the blob the winning record references.
func TestContentStore_InsertRaceOnSharedBlobPath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("raced novel payload")
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	now := time.Now()
	blobPath := filepath.Join(store.contentDir, blobFileName(now, hash, store.extension))

	createdFirst, err := store.writeBlob(blobPath, content)
	require.NoError(t, err)
	require.True(t, createdFirst)

	createdSecond, err := store.writeBlob(blobPath, content)
	require.NoError(t, err)
	require.False(t, createdSecond)

	rec := ContentRecord{
		ContentHash: hash,
		FirstSeen:   now,
		LastSeen:    now,
		SizeBytes:   int64(len(content)),
		ContentType: "text/plain",
		SourceURL:   "https://example.com/feed",
		FilePath:    blobPath,
	}
	inserted, err := store.insertRecord(ctx, rec)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = store.insertRecord(ctx, rec)
	require.NoError(t, err)
	require.False(t, inserted)

	require.NoError(t, store.resolveInsertRace(ctx, hash, blobPath, createdFirst, now))

	winner, err := store.GetRecord(ctx, hash)
	require.NoError(t, err)
	_, statErr := os.Stat(winner.FilePath)
	assert.NoError(t, statErr, "record must never point at a missing blob")
}

func TestContentStore_InsertRaceRemovesLosingBlobOnDistinctPaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	content := []byte("raced across a second boundary")
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])
	now := time.Now()

	winnerPath := filepath.Join(store.contentDir, blobFileName(now, hash, store.extension))
	loserPath := filepath.Join(store.contentDir, blobFileName(now.Add(time.Second), hash, store.extension))
	require.NotEqual(t, winnerPath, loserPath)

	created, err := store.writeBlob(winnerPath, content)
	require.NoError(t, err)
	require.True(t, created)
	created, err = store.writeBlob(loserPath, content)
	require.NoError(t, err)
	require.True(t, created)

	inserted, err := store.insertRecord(ctx, ContentRecord{
		ContentHash: hash,
		FirstSeen:   now,
		LastSeen:    now,
		SizeBytes:   int64(len(content)),
		ContentType: "text/plain",
		SourceURL:   "https://example.com/feed",
		FilePath:    winnerPath,
	})
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, store.resolveInsertRace(ctx, hash, loserPath, true, now))

	_, err = os.Stat(winnerPath)
	assert.NoError(t, err, "winning blob must survive")
	_, err = os.Stat(loserPath)
	assert.ErrorIs(t, err, os.ErrNotExist, "losing blob must be cleaned up")
}

func TestContentStore_GetRecordNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRecord(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestContentStore_HealthyAfterClose(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Healthy(ctx))

	require.NoError(t, store.Close())
	err := store.Healthy(ctx)
	assert.ErrorIs(t, err, common.ErrStoreFatal)
}
