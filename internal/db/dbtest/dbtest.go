// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/authgate/internal/db"
)

// New returns a fresh database with every migration applied. The pool is
// limited to one connection so the in-memory database outlives each query.
func New(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	database.SetConnMaxLifetime(0)
	database.SetConnMaxIdleTime(0)
	t.Cleanup(func() { _ = database.Close() })

	_, err = database.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(context.Background(), database.DB, "sqlite"))
	return database
}
