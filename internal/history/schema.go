// Package history provides a SQLite-backed log of command executions.
package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS executions (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	command           TEXT NOT NULL,
	outcome           TEXT NOT NULL,
	error             TEXT NOT NULL DEFAULT '',
	dir               TEXT NOT NULL DEFAULT '',
	args              TEXT NOT NULL DEFAULT '[]',
	artifact          TEXT NOT NULL DEFAULT '',
	artifact_checksum TEXT NOT NULL DEFAULT '',
	started_at        DATETIME NOT NULL,
	duration_ms       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_executions_command ON executions(command);
`

// DB wraps a sql.DB with history operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
