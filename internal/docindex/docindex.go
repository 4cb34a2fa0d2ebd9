// Package docindex persists documentation entries in a SQLite database so they
// can be searched without reparsing the sources.
package docindex

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	// Pure Go driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/kpumuk/swift-weaver/internal/docs"
	"github.com/kpumuk/swift-weaver/internal/text"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// DefaultSearchLimit caps Search results when no limit is given.
const DefaultSearchLimit = 50

// ErrSchemaVersion reports a database written by an incompatible version.
var ErrSchemaVersion = errors.New("unsupported index schema version")

// Index is a SQLite-backed store of documentation entries keyed by file path.
type Index struct {
	db *sql.DB
}

// Result is one search hit.
type Result struct {
	Path string `json:"path"`
	docs.Entry
}

// Open opens or creates the index at path. Use ":memory:" for a private
// in-memory database.
func Open(ctx context.Context, path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	// One connection keeps ":memory:" databases shared between statements.
	db.SetMaxOpenConns(1)
	if err := createSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// ContentHash returns the digest Fresh and Replace compare sources by.
func ContentHash(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// Fresh reports whether path is indexed with content hash.
func (ix *Index) Fresh(ctx context.Context, path, hash string) (bool, error) {
	var stored string
	err := ix.db.QueryRowContext(ctx, "SELECT hash FROM files WHERE path = ?", path).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("querying file: %w", err)
	}
	return stored == hash, nil
}

// Replace stores entries as the complete documentation of path.
func (ix *Index) Replace(ctx context.Context, path, hash string, entries []docs.Entry) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE path = ?", path); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO files (path, hash) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET hash = excluded.hash
	`, path, hash); err != nil {
		return fmt.Errorf("upserting file: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (
			path, name, token_offset, token_length, line_start, line_end, utf16_line, utf16_character,
			comment_offset, comment_length, comment, kind, declaration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			path,
			e.Name,
			int(e.Offset),
			int(e.Length),
			e.Lines.Start,
			e.Lines.End,
			e.Position.Line,
			e.Position.Character,
			int(e.CommentOffset),
			int(e.CommentLength),
			e.Comment,
			e.Kind,
			e.Declaration,
		)
		if err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Remove drops path and its entries.
func (ix *Index) Remove(ctx context.Context, path string) error {
	if _, err := ix.db.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Paths returns the indexed file paths in sorted order.
func (ix *Index) Paths(ctx context.Context) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}
	return out, nil
}

// Entries returns the stored entries of path in source order.
func (ix *Index) Entries(ctx context.Context, path string) ([]docs.Entry, error) {
	results, err := ix.query(ctx, `
		SELECT `+resultColumns+` FROM entries
		WHERE path = ?
		ORDER BY token_offset
	`, path)
	if err != nil {
		return nil, err
	}
	out := make([]docs.Entry, 0, len(results))
	for _, r := range results {
		out = append(out, r.Entry)
	}
	return out, nil
}

// Search finds entries whose name or comment contains query, case-insensitively.
// Exact name matches come first. A limit of 0 means DefaultSearchLimit.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	pattern := "%" + escapeLike(query) + "%"
	return ix.query(ctx, `
		SELECT `+resultColumns+` FROM entries
		WHERE name LIKE ? ESCAPE '\' OR comment LIKE ? ESCAPE '\'
		ORDER BY (name = ?) DESC, (name LIKE ? ESCAPE '\') DESC, path, token_offset
		LIMIT ?
	`, pattern, pattern, query, pattern, limit)
}

const resultColumns = `path, name, token_offset, token_length, line_start, line_end, utf16_line, utf16_character,
	comment_offset, comment_length, comment, kind, declaration`

func (ix *Index) query(ctx context.Context, q string, args ...any) ([]Result, error) {
	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r                                Result
			offset, length, cOffset, cLength int
		)
		err := rows.Scan(
			&r.Path,
			&r.Name,
			&offset,
			&length,
			&r.Lines.Start,
			&r.Lines.End,
			&r.Position.Line,
			&r.Position.Character,
			&cOffset,
			&cLength,
			&r.Comment,
			&r.Kind,
			&r.Declaration,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		r.Offset = text.ByteOffset(offset)
		r.Length = text.ByteOffset(length)
		r.CommentOffset = text.ByteOffset(cOffset)
		r.CommentLength = text.ByteOffset(cLength)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
