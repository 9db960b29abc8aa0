package datastore

import (
	"database/sql"
	"fmt"
	"time"

	"snapfetch/internal/common"

	_ "modernc.org/sqlite"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
)

const schema = `
CREATE TABLE IF NOT EXISTS content (
	content_hash TEXT PRIMARY KEY,
	first_seen   TIMESTAMP,
	last_seen    TIMESTAMP,
	size_bytes   INTEGER,
	content_type TEXT,
	source_url   TEXT,
	file_path    TEXT
);
`

// openDatabase opens the per-source SQLite metadata database and bootstraps
// the schema. The pool is pinned to a single connection so metadata writes
// from concurrent Store calls serialize at the database handle.
func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "failed to open metadata database")
	}

	if err := configureDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "failed to initialize metadata schema")
	}

	return db, nil
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return common.WrapError(err, "failed to apply pragma")
		}
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return nil
}
