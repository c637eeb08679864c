// Package sqlite provides a persistent area.Area on SQLite. Index positions
// follow insertion order; overwriting a key keeps its position.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/poiesic/localstore/platform/area"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT NOT NULL UNIQUE,
    value TEXT NOT NULL
);
`

// Area is an area.Area stored in a SQLite table.
type Area struct {
	sqlDB *sql.DB
}

var _ area.Area = (*Area)(nil)

// Open opens or creates the SQLite database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(path string) (*Area, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite area: %w", err)
	}
	// one connection keeps an in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite area: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create sqlite area schema: %w", err)
	}
	return &Area{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (a *Area) Close() error {
	if a == nil || a.sqlDB == nil {
		return nil
	}
	return a.sqlDB.Close()
}

// GetItem returns the value stored under key.
func (a *Area) GetItem(key string) (string, bool, error) {
	var value string
	err := a.sqlDB.QueryRow(`SELECT value FROM items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, translate(err)
	}
	return value, true, nil
}

// SetItem stores value under key.
func (a *Area) SetItem(key, value string) error {
	_, err := a.sqlDB.Exec(
		`INSERT INTO items (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return translate(err)
}

// RemoveItem removes key.
func (a *Area) RemoveItem(key string) error {
	_, err := a.sqlDB.Exec(`DELETE FROM items WHERE key = ?`, key)
	return translate(err)
}

// Clear removes every key.
func (a *Area) Clear() error {
	_, err := a.sqlDB.Exec(`DELETE FROM items`)
	return translate(err)
}

// Key returns the key at index in insertion order.
func (a *Area) Key(index int) (string, bool, error) {
	if index < 0 {
		return "", false, nil
	}
	var key string
	err := a.sqlDB.QueryRow(`SELECT key FROM items ORDER BY id LIMIT 1 OFFSET ?`, index).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, translate(err)
	}
	return key, true, nil
}

// Length returns the number of stored keys.
func (a *Area) Length() (int, error) {
	var n int
	if err := a.sqlDB.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// translate maps a full database onto area.ErrQuotaExceeded.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", area.ErrClosed, err)
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_FULL {
		return fmt.Errorf("%w: %w", area.ErrQuotaExceeded, err)
	}
	return err
}
