package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"dataroom/internal/repository"
)

// EnsureSchema creates the folder and file tables with their sibling-name indexes
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *repository.TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				parent_id BIGINT REFERENCES %s(id),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.Folders, tables.Folders),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s
			ON %s (COALESCE(parent_id, 0), LOWER(name))
		`, tables.Index(tables.Folders, "sibling_name"), tables.Folders),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (parent_id)
		`, tables.Index(tables.Folders, "parent"), tables.Folders),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				folder_id BIGINT REFERENCES %s(id),
				mime_type TEXT NOT NULL,
				size BIGINT NOT NULL,
				stored_id TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.Files, tables.Folders),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s
			ON %s (COALESCE(folder_id, 0), LOWER(name))
		`, tables.Index(tables.Files, "sibling_name"), tables.Files),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (folder_id)
		`, tables.Index(tables.Files, "folder"), tables.Files),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops the folder and file tables for the configured prefix
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *repository.TableNames) error {
	dropSQL := fmt.Sprintf(`
		DROP TABLE IF EXISTS %s CASCADE;
		DROP TABLE IF EXISTS %s CASCADE;
	`, tables.Files, tables.Folders)

	if _, err := pool.Exec(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

// ClearData removes every row while keeping the tables
func ClearData(ctx context.Context, pool *pgxpool.Pool, tables *repository.TableNames) error {
	query := fmt.Sprintf(`TRUNCATE %s, %s RESTART IDENTITY`, tables.Files, tables.Folders)
	if _, err := pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	return nil
}
