package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Open opens the database described by cfg and migrates its schema. The
// caller is responsible for closing the returned *sql.DB.
//
// The pool is limited to a single connection (SQLite serialises writes) so
// PRAGMAs apply consistently.
func Open(cfg Config) (*sql.DB, error) {
	cfg.defaults()

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// OpenPersister opens path with default settings and returns a Persister
// backed by it, along with the database handle to close.
func OpenPersister(path string) (*Persister, *sql.DB, error) {
	db, err := Open(Config{Path: path})
	if err != nil {
		return nil, nil, err
	}
	return &Persister{db: db}, db, nil
}
