// Package db opens the event store database. DATABASE_URL selects the dialect:
// postgres:// or postgresql:// uses pgx, sqlite:// uses the embedded pure-Go sqlite driver.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a *sql.DB.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// ErrUnsupportedScheme is returned for a DSN that is neither postgres nor sqlite.
var ErrUnsupportedScheme = errors.New("db: DATABASE_URL must start with postgres://, postgresql:// or sqlite://")

const sqliteScheme = "sqlite://"

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// DialectOf returns the dialect for dsn.
func DialectOf(dsn string) (Dialect, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, nil
	case strings.HasPrefix(dsn, sqliteScheme):
		return SQLite, nil
	default:
		return 0, ErrUnsupportedScheme
	}
}

// Rebind rewrites ? placeholders into the dialect's bind syntax ($1, $2, ... for Postgres).
// Queries must not contain literal question marks.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLitePath returns the file path of a sqlite:// DSN.
func SQLitePath(dsn string) string {
	return strings.TrimPrefix(strings.TrimSpace(dsn), sqliteScheme)
}

// Open opens the database named by dsn and pings it. Caller must call Close when done.
func Open(dsn string) (*sql.DB, Dialect, error) {
	dialect, err := DialectOf(dsn)
	if err != nil {
		return nil, 0, err
	}
	var db *sql.DB
	switch dialect {
	case SQLite:
		db, err = openSQLite(SQLitePath(dsn))
	default:
		db, err = sql.Open("pgx", dsn)
	}
	if err != nil {
		return nil, 0, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, 0, err
	}
	return db, dialect, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("db: sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create sqlite dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	return db, nil
}
