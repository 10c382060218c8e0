// Package dbtest provides a migrated throwaway sqlite database for repository tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"restaurant-bridge/backend/internal/db"
	"restaurant-bridge/backend/internal/db/migrate"
)

// Open creates a fresh sqlite database in t.TempDir, applies all migrations and
// registers Close with t.Cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "bridge.db")
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("dbtest: migrate: %v", err)
	}
	conn, _, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("dbtest: open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
