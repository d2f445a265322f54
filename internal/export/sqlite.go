// Package export copies docdb entries into other storage formats.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/calvinalkan/docdb/pkg/docdb"
)

// ErrPathEmpty is returned when no target file is given.
var ErrPathEmpty = errors.New("export path is empty")

// SQLite upserts entries into the entries table of the SQLite database at
// path, creating the file and table when missing. Each row holds the entry ID
// and the JSON encoding of its value. Rows for IDs not in entries are left
// alone.
//
// It returns the number of rows written.
func SQLite(ctx context.Context, path string, entries []docdb.Entry) (int, error) {
	if path == "" {
		return 0, ErrPathEmpty
	}

	db, err := openSqlite(ctx, path)
	if err != nil {
		return 0, err
	}

	n, err := writeEntries(ctx, db, entries)

	closeErr := db.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("sqlite: close: %w", closeErr)
	}

	if err != nil || closeErr != nil {
		return 0, errors.Join(err, closeErr)
	}

	return n, nil
}

func openSqlite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `PRAGMA journal_mode=WAL`)
	if err == nil {
		_, err = db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS entries (
				id   TEXT PRIMARY KEY,
				data TEXT NOT NULL
			)
		`)
	}

	if err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			closeErr = fmt.Errorf("sqlite: close: %w", closeErr)
		}

		return nil, errors.Join(fmt.Errorf("sqlite: init: %w", err), closeErr)
	}

	return db, nil
}

func writeEntries(ctx context.Context, db *sql.DB, entries []docdb.Entry) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare: %w", err)
	}

	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		_, err = stmt.ExecContext(ctx, e.ID, e.Data.String())
		if err != nil {
			return 0, fmt.Errorf("sqlite: insert %q: %w", e.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}

	committed = true

	return len(entries), nil
}
