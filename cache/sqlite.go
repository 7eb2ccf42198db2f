package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS translations (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    created_at INTEGER NOT NULL
)`

// SQLiteConfig holds configuration for the SQLite cache.
type SQLiteConfig struct {
	Path string // Database file; created with its directory if missing
	TTL  int    // TTL in seconds (0 = no expiration)
}

// SQLiteCache is a translation memory persisted in a SQLite database, so
// translations survive across runs without a server.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteCache opens or creates the cache database.
func NewSQLiteCache(ctx context.Context, cfg SQLiteConfig) (*SQLiteCache, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite cache: path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite cache: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite cache: apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite cache: create schema: %w", err)
	}

	ttl := time.Duration(cfg.TTL) * time.Second
	if cfg.TTL <= 0 {
		ttl = 0
	}

	return &SQLiteCache{db: db, ttl: ttl, now: time.Now}, nil
}

// oldest returns the earliest creation time still considered live.
func (c *SQLiteCache) oldest() int64 {
	if c.ttl <= 0 {
		return 0
	}
	return c.now().Add(-c.ttl).Unix()
}

// Get retrieves a value. Errors are reported as misses.
func (c *SQLiteCache) Get(key string) (string, bool) {
	var value string
	err := c.db.QueryRow(
		`SELECT value FROM translations WHERE key = ? AND created_at >= ?`,
		key, c.oldest(),
	).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores or replaces a value.
func (c *SQLiteCache) Set(key string, value string) error {
	_, err := c.db.Exec(
		`INSERT INTO translations (key, value, created_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, value, c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite cache: set: %w", err)
	}
	return nil
}

// Entries returns all live entries.
func (c *SQLiteCache) Entries() (map[string]string, error) {
	rows, err := c.db.Query(`SELECT key, value FROM translations WHERE created_at >= ?`, c.oldest())
	if err != nil {
		return nil, fmt.Errorf("sqlite cache: list: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("sqlite cache: scan: %w", err)
		}
		result[key] = value
	}
	return result, rows.Err()
}

// Prune deletes expired entries and returns how many were removed.
func (c *SQLiteCache) Prune(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM translations WHERE created_at < ?`, c.oldest())
	if err != nil {
		return 0, fmt.Errorf("sqlite cache: prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

var (
	_ Store  = (*SQLiteCache)(nil)
	_ Lister = (*SQLiteCache)(nil)
)
