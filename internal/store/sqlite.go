package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HartBrook/tokun/internal/errors"

	_ "modernc.org/sqlite"
)

// dsnPragmas enables WAL and waits up to 5s on a lock held by another process.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// SQLite stores settings and history in a single database file.
// Driver name is "sqlite" (modernc.org/sqlite, pure Go).
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.StoreFailed("open", err)
	}

	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, errors.StoreFailed("open", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.StoreFailed("open", err)
	}
	// One connection per process; busy_timeout covers other processes.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const ddlSettings = `CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);`

const ddlHistory = `CREATE TABLE IF NOT EXISTS history (
	id               TEXT PRIMARY KEY,
	created_at       TEXT    NOT NULL,
	provider         TEXT    NOT NULL,
	model            TEXT    NOT NULL DEFAULT '',
	mode             TEXT    NOT NULL DEFAULT '',
	source           TEXT    NOT NULL,
	original_text    TEXT    NOT NULL,
	optimized_text   TEXT    NOT NULL,
	original_tokens  INTEGER NOT NULL,
	optimized_tokens INTEGER NOT NULL
);`

const ddlHistoryIndex = `CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);`

func (s *SQLite) migrate() error {
	for _, ddl := range []string{ddlSettings, ddlHistory, ddlHistoryIndex} {
		if _, err := s.db.Exec(ddl); err != nil {
			return errors.StoreFailed("migrate", err)
		}
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.StoreFailed(fmt.Sprintf("get %q", key), err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return errors.StoreFailed(fmt.Sprintf("set %q", key), err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return errors.StoreFailed(fmt.Sprintf("delete %q", key), err)
	}
	return nil
}
