// Package sqlite provides the SQLite-backed persistence adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// defaultBusyTimeout is how long a writer waits on a locked database before
// erroring instead of failing immediately.
const defaultBusyTimeout = 5 * time.Second

// schema is applied on every open; CREATE TABLE IF NOT EXISTS keeps it
// idempotent across restarts.
const schema = `
CREATE TABLE IF NOT EXISTS services (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL UNIQUE,
	url              TEXT NOT NULL,
	health_check_url TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS incidents (
	id          TEXT PRIMARY KEY,
	service_id  TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	severity    TEXT NOT NULL,
	status      TEXT NOT NULL,
	reported_at TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_incidents_service ON incidents(service_id);
CREATE INDEX IF NOT EXISTS idx_incidents_status  ON incidents(status);

CREATE TABLE IF NOT EXISTS deployments (
	id          TEXT PRIMARY KEY,
	service_id  TEXT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
	version     TEXT NOT NULL,
	status      TEXT NOT NULL,
	deployed_by TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_deployments_service ON deployments(service_id);

CREATE TABLE IF NOT EXISTS logs (
	id          TEXT PRIMARY KEY,
	service_id  TEXT NOT NULL,
	level       TEXT NOT NULL,
	message     TEXT NOT NULL,
	stack_trace TEXT NOT NULL DEFAULT '',
	timestamp   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_service_level ON logs(service_id, level);
CREATE INDEX IF NOT EXISTS idx_logs_timestamp     ON logs(timestamp);

CREATE TABLE IF NOT EXISTS actions (
	id          TEXT PRIMARY KEY,
	incident_id TEXT NOT NULL REFERENCES incidents(id) ON DELETE CASCADE,
	command_run TEXT NOT NULL,
	result      TEXT NOT NULL DEFAULT '',
	executed_by TEXT NOT NULL DEFAULT '',
	timestamp   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_incident ON actions(incident_id);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
`

// DB wraps the shared database handle used by all stores.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. Use ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)",
		path, defaultBusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Ping verifies database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}
