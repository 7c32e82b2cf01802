// Package store provides the SQLite persistence for command2llm. A single
// command2llm.db file holds the dispatch audit log (every forged command
// execution) and the per-session dispatch latch, so "one command per
// session" survives restarts.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// schema is the DDL executed on every startup (idempotent via IF NOT EXISTS).
const schema = `
-- Audit of forged command dispatches.
CREATE TABLE IF NOT EXISTS dispatch_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL,
    input       TEXT NOT NULL,
    command     TEXT NOT NULL,
    score       REAL NOT NULL DEFAULT 0,
    decided_by  TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dispatch_log_created ON dispatch_log(created_at);

-- Sessions that already had a command dispatched.
CREATE TABLE IF NOT EXISTS session_latch (
    session_id TEXT PRIMARY KEY,
    latched_at TEXT NOT NULL
);
`

// DispatchRecord is one row of the dispatch audit log.
type DispatchRecord struct {
	SessionID string
	Input     string
	Command   string
	Score     float64
	// DecidedBy records how the command was chosen: "agent" (LLM tool
	// call) or "fuzzy" (threshold-gated matcher).
	DecidedBy string
	CreatedAt time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// pruneWg tracks the startup prune so Close does not race it.
	pruneWg sync.WaitGroup
}

// Open opens (or creates) the database at the given path, enables WAL mode,
// and creates the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		path = "./data/command2llm.db"
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Ensure parent directory exists.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db, logger: logger.With("component", "store")}
	s.pruneWg.Add(1)
	go func() {
		defer s.pruneWg.Done()
		s.autoPrune()
	}()
	return s, nil
}

// Close waits for the startup prune and closes the database.
func (s *Store) Close() error {
	s.pruneWg.Wait()
	return s.db.Close()
}

// LogDispatch records a forged command dispatch in the audit log.
func (s *Store) LogDispatch(rec DispatchRecord) {
	input := rec.Input
	if len(input) > 500 {
		input = input[:500] + "...[truncated]"
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO dispatch_log (session_id, input, command, score, decided_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, input, rec.Command, rec.Score, rec.DecidedBy, now,
	)
	if err != nil {
		s.logger.Warn("failed to write dispatch log", "command", rec.Command, "err", err)
	}
}

// Recent returns the last n dispatch records, newest first.
func (s *Store) Recent(n int) []DispatchRecord {
	rows, err := s.db.Query(`
		SELECT session_id, input, command, score, decided_by, created_at
		FROM dispatch_log
		ORDER BY id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var records []DispatchRecord
	for rows.Next() {
		var rec DispatchRecord
		var createdAt string
		if err := rows.Scan(&rec.SessionID, &rec.Input, &rec.Command, &rec.Score, &rec.DecidedBy, &createdAt); err != nil {
			continue
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records
}

// Count returns the total number of dispatch log entries.
func (s *Store) Count() int {
	var count int
	_ = s.db.QueryRow("SELECT COUNT(*) FROM dispatch_log").Scan(&count)
	return count
}

// LatchSession marks a session as having dispatched its command.
func (s *Store) LatchSession(sessionID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT INTO session_latch (session_id, latched_at) VALUES (?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		sessionID, now,
	)
	if err != nil {
		return fmt.Errorf("latch session %q: %w", sessionID, err)
	}
	return nil
}

// SessionLatched reports whether a session already dispatched a command.
func (s *Store) SessionLatched(sessionID string) bool {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM session_latch WHERE session_id = ?", sessionID,
	).Scan(&one)
	return err == nil
}

// UnlatchAll clears every session latch (refresh_commands resets sessions).
func (s *Store) UnlatchAll() error {
	_, err := s.db.Exec("DELETE FROM session_latch")
	if err != nil {
		return fmt.Errorf("clear session latches: %w", err)
	}
	return nil
}

// autoPrune deletes dispatch entries older than 30 days.
func (s *Store) autoPrune() {
	cutoff := time.Now().AddDate(0, 0, -30).UTC().Format(time.RFC3339)
	result, err := s.db.Exec("DELETE FROM dispatch_log WHERE created_at < ?", cutoff)
	if err != nil {
		s.logger.Warn("dispatch log prune failed", "err", err)
		return
	}
	if n, _ := result.RowsAffected(); n > 0 {
		s.logger.Info("dispatch log pruned", "removed", n)
	}
}
