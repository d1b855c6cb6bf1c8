package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dataroom/internal/repository"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
)

// Open opens the SQLite database at path and bootstraps the schema
func Open(ctx context.Context, path string, tables *repository.TableNames) (*sql.DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serializes writers; every query inside a transaction
	// must go through the transaction's executor.
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := EnsureSchema(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// sqliteDSN builds a file URI whose pragmas are re-applied on every new connection
func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}

	query := url.Values{}
	query.Add("_pragma", "foreign_keys(1)")
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	if path != ":memory:" {
		query.Add("_pragma", "journal_mode(WAL)")
		query.Add("_pragma", "synchronous(NORMAL)")
	}

	u := url.URL{Scheme: "file", Opaque: path, RawQuery: query.Encode()}
	return u.String(), nil
}

// PathFromURL extracts the database path from a sqlite:// or file: URL.
// Plain paths are returned unchanged.
func PathFromURL(databaseURL string) string {
	for _, prefix := range []string{"sqlite://", "sqlite:", "file:"} {
		if strings.HasPrefix(databaseURL, prefix) {
			path := strings.TrimPrefix(databaseURL, prefix)
			if i := strings.IndexByte(path, '?'); i >= 0 {
				path = path[:i]
			}
			return path
		}
	}
	return databaseURL
}

// EnsureSchema creates the folder and file tables with their sibling-name indexes
func EnsureSchema(ctx context.Context, db *sql.DB, tables *repository.TableNames) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  parent_id INTEGER REFERENCES %s(id),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`, tables.Folders, tables.Folders),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (COALESCE(parent_id, 0), LOWER(name))`,
			tables.Index(tables.Folders, "sibling_name"), tables.Folders),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (parent_id)`,
			tables.Index(tables.Folders, "parent"), tables.Folders),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  folder_id INTEGER REFERENCES %s(id),
  mime_type TEXT NOT NULL,
  size INTEGER NOT NULL,
  stored_id TEXT NOT NULL UNIQUE,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
)`, tables.Files, tables.Folders),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (COALESCE(folder_id, 0), LOWER(name))`,
			tables.Index(tables.Files, "sibling_name"), tables.Files),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (folder_id)`,
			tables.Index(tables.Files, "folder"), tables.Files),
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops the folder and file tables
func DropSchema(ctx context.Context, db *sql.DB, tables *repository.TableNames) error {
	for _, table := range []string{tables.Files, tables.Folders} {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}

// ClearData removes every row while keeping the tables
func ClearData(ctx context.Context, db *sql.DB, tables *repository.TableNames) error {
	for _, table := range []string{tables.Files, tables.Folders} {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return fmt.Errorf("clear table %s: %w", table, err)
		}
	}
	return nil
}
