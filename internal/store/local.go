// Package store persists the dashboard's local state in SQLite: the
// signed-in session and the journal of admin actions.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"htnadmin/internal/logging"
)

// LocalStore is a SQLite-backed store. It implements session.Store and
// journal.Recorder.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway store.
func NewLocalStore(path string) (*LocalStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	s := &LocalStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Opened local store at %s", path)
	return s, nil
}

func (s *LocalStore) initialize() error {
	sessionTable := `
	CREATE TABLE IF NOT EXISTS session_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		state TEXT NOT NULL,
		token TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	journalTable := `
	CREATE TABLE IF NOT EXISTS action_journal (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		target_type TEXT NOT NULL DEFAULT '',
		target_id INTEGER NOT NULL DEFAULT 0,
		summary TEXT NOT NULL,
		detail TEXT,
		at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_journal_at ON action_journal(at);
	CREATE INDEX IF NOT EXISTS idx_journal_target ON action_journal(target_type, target_id);
	`

	for _, ddl := range []string{sessionTable, journalTable} {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Path returns the database path.
func (s *LocalStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	logging.Store("Closing LocalStore database connection")
	return s.db.Close()
}
