package telemetry

import (
	"context"
	"fmt"
)

// schemaDDL creates the telemetry tables and indexes. Every statement
// is idempotent so the bootstrap can run on each startup and in tests.
//
// value_type and device_type ids come from callers (external sensor
// numbering), so they are plain INTEGER PRIMARY KEY without
// AUTOINCREMENT. value rows get an autoincrement id, which doubles as
// the insertion-order tie-break for equal timestamps.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS value_type (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	unit TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS device_type (
	id       INTEGER PRIMARY KEY,
	name     TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS value (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	time          INTEGER NOT NULL,
	value         REAL NOT NULL,
	value_type_id INTEGER NOT NULL REFERENCES value_type(id)
);

CREATE INDEX IF NOT EXISTS idx_value_time ON value(time);
CREATE INDEX IF NOT EXISTS idx_value_type ON value(value_type_id);
`

// EnsureSchema creates the telemetry tables if they do not exist yet.
// Call once at startup before serving requests.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("creating telemetry schema: %w", err)
	}
	return nil
}
