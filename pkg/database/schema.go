// Package database provides the sqlite-backed operation history log used
// by the CLI's --history-db flag (SPEC_FULL §4.M). It is a pure
// diagnostics/audit trail: nothing in pkg/c2pa ever reads from it, so a
// missing or corrupt database degrades to a logged warning rather than a
// hard failure.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Options holds configuration for opening the history database.
type Options struct {
	Path        string
	EnableWAL   bool
	BusyTimeout int // milliseconds
}

// OpenDatabase opens a SQLite database connection at options.Path and
// initializes the operation_history schema if needed.
func OpenDatabase(options Options) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", options.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if options.EnableWAL {
		if err := enableWAL(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	if options.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", options.BusyTimeout)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	return db, nil
}

// initializeSchema creates the operation_history table and its indexes.
func initializeSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion sql.NullString
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check schema version: %w", err)
	}
	if currentVersion.Valid && currentVersion.String == "1.0.0" {
		return nil
	}

	// Operation history: one row per sign/verify invocation.
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS operation_history (
			entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TIMESTAMP NOT NULL,

			mode TEXT NOT NULL,
			asset_path TEXT NOT NULL,
			manifest_label TEXT,

			status_codes TEXT NOT NULL,
			outcome TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create operation_history table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_history_occurred_at ON operation_history(occurred_at)",
		"CREATE INDEX IF NOT EXISTS idx_history_mode ON operation_history(mode)",
		"CREATE INDEX IF NOT EXISTS idx_history_outcome ON operation_history(outcome)",
	}
	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES ('1.0.0')"); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

func enableWAL(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// CloseDatabase closes the database connection.
func CloseDatabase(db *sql.DB) error {
	return db.Close()
}

// Entry is one recorded sign or verify invocation.
type Entry struct {
	OccurredAt     time.Time
	Mode           string // "sign" or "verify"
	AssetPath      string
	ManifestLabel  string
	StatusCodesRaw string // JSON-encoded list of status codes
	Outcome        string // "ok" or "error"
}

// RecordEntry inserts a row into operation_history. Callers treat a
// non-nil error as advisory only, per §4.M: it never changes the
// sign/verify status list already returned to the caller.
func RecordEntry(db *sql.DB, e Entry) error {
	_, err := db.Exec(
		`INSERT INTO operation_history (occurred_at, mode, asset_path, manifest_label, status_codes, outcome)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.OccurredAt, e.Mode, e.AssetPath, e.ManifestLabel, e.StatusCodesRaw, e.Outcome,
	)
	if err != nil {
		return fmt.Errorf("failed to record history entry: %w", err)
	}
	return nil
}
