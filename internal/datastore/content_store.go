package datastore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	"snapfetch/internal/common"

	"github.com/rs/zerolog"
)

// ErrRecordNotFound is returned when no record exists for a content hash.
var ErrRecordNotFound = errors.New("content record not found")

// ContentRecord is one row of the metadata table, keyed by content hash.
// All fields except LastSeen are immutable after first observation.
type ContentRecord struct {
	ContentHash string
	FirstSeen   time.Time
	LastSeen    time.Time
	SizeBytes   int64
	ContentType string
	SourceURL   string
	FilePath    string
}

// ContentStore owns the persistent record of known content hashes and the
// on-disk blob layout for one named source. It is the sole authority on
// whether a payload has been seen before.
type ContentStore struct {
	name       string
	baseDir    string
	contentDir string
	extension  string
	db         *sql.DB
	logger     zerolog.Logger
}

// NewContentStore creates the source's directory tree under outputDir, opens
// the metadata database and ensures the schema exists.
func NewContentStore(name, outputDir, extension string, logger zerolog.Logger) (*ContentStore, error) {
	if name == "" {
		return nil, common.NewError("content store name is required")
	}

	baseDir := filepath.Join(outputDir, name)
	contentDir := filepath.Join(baseDir, "content")
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, common.WrapError(err, "failed to create content directory '"+contentDir+"'")
	}

	db, err := openDatabase(filepath.Join(baseDir, "content.db"))
	if err != nil {
		return nil, err
	}

	return &ContentStore{
		name:       name,
		baseDir:    baseDir,
		contentDir: contentDir,
		extension:  extension,
		db:         db,
		logger:     logger.With().Str("component", "ContentStore").Str("source", name).Logger(),
	}, nil
}

// Name returns the source name the store is bound to.
func (cs *ContentStore) Name() string {
	return cs.name
}

// BaseDir returns the source's directory under the output root.
func (cs *ContentStore) BaseDir() string {
	return cs.baseDir
}

// Close closes the underlying database connection.
func (cs *ContentStore) Close() error {
	if cs == nil || cs.db == nil {
		return nil
	}
	return cs.db.Close()
}

// Store decides novelty of a payload and persists it exactly once per
// distinct byte sequence. The SHA-256 hex digest of the bytes is the sole
// identity. On a repeat sighting only last_seen is updated and no filesystem
// write occurs. For novel content the blob file is written before the
// metadata row is inserted, so a crash between the two steps leaves at worst
// an orphan file, never a record pointing at a missing blob.
func (cs *ContentStore) Store(ctx context.Context, content []byte, sourceURL, contentType string) (string, bool, error) {
	sum := sha256.Sum256(content)
	contentHash := hex.EncodeToString(sum[:])
	now := time.Now()

	seen, err := cs.touchLastSeen(ctx, contentHash, now)
	if err != nil {
		return contentHash, false, err
	}
	if seen {
		return contentHash, false, nil
	}

	blobPath := filepath.Join(cs.contentDir, blobFileName(now, contentHash, cs.extension))
	created, err := cs.writeBlob(blobPath, content)
	if err != nil {
		return contentHash, false, err
	}

	inserted, err := cs.insertRecord(ctx, ContentRecord{
		ContentHash: contentHash,
		FirstSeen:   now,
		LastSeen:    now,
		SizeBytes:   int64(len(content)),
		ContentType: contentType,
		SourceURL:   sourceURL,
		FilePath:    blobPath,
	})
	if err != nil {
		if created {
			_ = os.Remove(blobPath)
		}
		return contentHash, false, err
	}
	if !inserted {
		if err := cs.resolveInsertRace(ctx, contentHash, blobPath, created, now); err != nil {
			return contentHash, false, err
		}
		return contentHash, false, nil
	}

	return contentHash, true, nil
}

// resolveInsertRace converges a Store call that lost the insert race to the
// repeat-sighting outcome. The loser's blob is removed only when this call
// created it and the winning record references a different path; racing calls
// for the same bytes in the same second land on the same path, and removing
// it there would leave the winning record pointing at a missing file. When
// the winning record cannot be read the blob is kept: an orphan file is
// harmless, a dangling record is not.
func (cs *ContentStore) resolveInsertRace(ctx context.Context, contentHash, blobPath string, created bool, now time.Time) error {
	if created {
		winner, err := cs.GetRecord(ctx, contentHash)
		if err == nil && winner.FilePath != blobPath {
			_ = os.Remove(blobPath)
		}
	}
	_, err := cs.touchLastSeen(ctx, contentHash, now)
	return err
}

// touchLastSeen updates last_seen for an existing record. It reports whether
// a record for the hash already existed.
func (cs *ContentStore) touchLastSeen(ctx context.Context, contentHash string, now time.Time) (bool, error) {
	result, err := cs.db.ExecContext(ctx,
		`UPDATE content SET last_seen = ? WHERE content_hash = ?`,
		now, contentHash,
	)
	if err != nil {
		return false, common.WrapError(err, "failed to update last_seen for "+contentHash[:hashPrefixLen])
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, common.WrapError(err, "failed to read update result")
	}
	return affected > 0, nil
}

// insertRecord inserts a new record, reporting false when a concurrent insert
// for the same hash won. Uniqueness rides on the content_hash primary key.
func (cs *ContentStore) insertRecord(ctx context.Context, rec ContentRecord) (bool, error) {
	result, err := cs.db.ExecContext(ctx,
		`INSERT INTO content (content_hash, first_seen, last_seen, size_bytes, content_type, source_url, file_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash) DO NOTHING`,
		rec.ContentHash, rec.FirstSeen, rec.LastSeen, rec.SizeBytes, rec.ContentType, rec.SourceURL, rec.FilePath,
	)
	if err != nil {
		return false, common.WrapError(err, "failed to insert content record")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, common.WrapError(err, "failed to read insert result")
	}
	return affected > 0, nil
}

// writeBlob writes a new, immutable blob file and reports whether this call
// created it. An already existing file means a concurrent Store call for the
// same bytes landed on the same path in the same second; its content is
// identical, so that is treated as success without writing.
func (cs *ContentStore) writeBlob(path string, content []byte) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, common.WrapError(err, "failed to create blob directory")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, common.WrapError(err, "failed to create blob file '"+path+"'")
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, common.WrapError(err, "failed to write blob file '"+path+"'")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return false, common.WrapError(err, "failed to close blob file '"+path+"'")
	}
	return true, nil
}

// GetRecord fetches the metadata record for a content hash.
func (cs *ContentStore) GetRecord(ctx context.Context, contentHash string) (*ContentRecord, error) {
	row := cs.db.QueryRowContext(ctx,
		`SELECT content_hash, first_seen, last_seen, size_bytes, content_type, source_url, file_path
		 FROM content WHERE content_hash = ?`,
		contentHash,
	)

	var rec ContentRecord
	err := row.Scan(&rec.ContentHash, &rec.FirstSeen, &rec.LastSeen, &rec.SizeBytes, &rec.ContentType, &rec.SourceURL, &rec.FilePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to query content record")
	}
	return &rec, nil
}

// RecordCount returns the number of distinct content hashes on record.
func (cs *ContentStore) RecordCount(ctx context.Context) (int64, error) {
	var count int64
	if err := cs.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content`).Scan(&count); err != nil {
		return 0, common.WrapError(err, "failed to count content records")
	}
	return count, nil
}

// Healthy probes the metadata database. A failure here after a Store error
// indicates the store itself is broken rather than a single bad item, and is
// reported as the fatal class.
func (cs *ContentStore) Healthy(ctx context.Context) error {
	var one int
	if err := cs.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return common.WrapError(common.ErrStoreFatal, err.Error())
	}
	return nil
}
