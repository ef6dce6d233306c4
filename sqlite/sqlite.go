// Package sqlite provides a SQLite-backed catalog of fetch results.
//
// The catalog is a queryable mirror of the file-based result store. It is
// never consulted for resume decisions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// MemoryPath opens a private in-memory catalog.
const MemoryPath = ":memory:"

// migrations are applied in order. The index of the last applied migration
// plus one is stored in PRAGMA user_version.
var migrations = []string{
	`CREATE TABLE results (
		key TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		status TEXT NOT NULL,
		source_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		body_length INTEGER NOT NULL DEFAULT 0,
		revision TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		document_fetched_at TEXT NOT NULL DEFAULT '',
		attempted_titles TEXT NOT NULL DEFAULT '[]',
		fetched_at TEXT NOT NULL
	);
	CREATE INDEX idx_results_status ON results(status);`,

	`CREATE TABLE result_fields (
		result_key TEXT NOT NULL REFERENCES results(key) ON DELETE CASCADE,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (result_key, name)
	);
	CREATE INDEX idx_result_fields_name_value ON result_fields(name, value);`,
}

// DB wraps a single-connection SQLite handle.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB returns a DB for the file at path. Use MemoryPath for a throwaway
// catalog.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open connects, configures the connection and migrates the schema to the
// latest version.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	// One writer at a time.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	if db.path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return fmt.Errorf("catalog %q: %s: %w", db.path, pragma, err)
		}
	}

	db.db = conn
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		db.db = nil
		return fmt.Errorf("failed to migrate catalog: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// SchemaVersion returns the number of applied migrations.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	return version, err
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, opts)
}

func (db *DB) migrate(ctx context.Context) error {
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version > len(migrations) {
		return fmt.Errorf("catalog schema version %d is newer than supported version %d", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
