package db

import (
	"path/filepath"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zaloga.sqlite3")

	database, err := Open(string(SQLite), path)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	var mode string
	require.NoError(t, database.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, database.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	database := NewTestDB(t)

	require.NoError(t, EnsureSchema(database))
	require.NoError(t, EnsureSchema(database))

	var version string
	require.NoError(t, database.QueryRow(`SELECT value FROM settings WHERE key = 'schema_version'`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Zero(t, count)
}

func TestBuilderPlaceholders(t *testing.T) {
	tests := []struct {
		dialect Dialect
		want    string
	}{
		{SQLite, "DELETE FROM items WHERE id = ?"},
		{Postgres, "DELETE FROM items WHERE id = $1"},
	}

	for _, tt := range tests {
		d := &DB{Dialect: tt.dialect}
		query, args, err := d.Builder().Delete("items").Where(squirrel.Eq{"id": 1}).ToSql()
		require.NoError(t, err)
		assert.Equal(t, tt.want, query, "dialect %s", tt.dialect)
		assert.Equal(t, []any{1}, args)
	}
}
