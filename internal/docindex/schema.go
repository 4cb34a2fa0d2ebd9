package docindex

import (
	"context"
	"database/sql"
	"fmt"
)

func createSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := checkSchemaVersion(ctx, db); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			hash TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating files table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY,
			path TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
			name TEXT NOT NULL,
			token_offset INTEGER NOT NULL,
			token_length INTEGER NOT NULL,
			line_start INTEGER NOT NULL,
			line_end INTEGER NOT NULL,
			utf16_line INTEGER NOT NULL,
			utf16_character INTEGER NOT NULL,
			comment_offset INTEGER NOT NULL,
			comment_length INTEGER NOT NULL,
			comment TEXT NOT NULL,
			kind TEXT NOT NULL,
			declaration TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating entries table: %w", err)
	}

	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_entries_path ON entries(path, token_offset)",
		"CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name)",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("writing schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := db.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("%w: %d (want %d)", ErrSchemaVersion, version, SchemaVersion)
	}
	return nil
}
