package db

import (
	"fmt"
)

// SchemaVersion is recorded in the settings table. There are no migrations.
const SchemaVersion = "1"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    name     TEXT NOT NULL,
    quantity INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS items (
    id       BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    name     TEXT NOT NULL,
    quantity INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables if they don't already exist.
func EnsureSchema(database *DB) error {
	schema := sqliteSchema
	if database.Dialect == Postgres {
		schema = postgresSchema
	}

	if _, err := database.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	_, err := database.Exec(
		`INSERT INTO settings (key, value) VALUES ('schema_version', '` + SchemaVersion + `')
		 ON CONFLICT (key) DO NOTHING`,
	)
	if err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}
