package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    set_at INTEGER NOT NULL,
    expires INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache(expires);
`

// SQLiteCache is a DataCache in a SQLite table. Times are unix
// milliseconds; expires is 0 for entries that never expire.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

var _ DataCache = (*SQLiteCache)(nil)

// SQLiteOption configures a SQLiteCache.
type SQLiteOption func(*SQLiteCache)

// WithNow replaces the clock used for set_at and expiry checks.
func WithNow(now func() time.Time) SQLiteOption {
	return func(c *SQLiteCache) {
		c.now = now
	}
}

// OpenSQLite opens or creates a cache database at path.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000", cacheSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init cache database: %w", err)
		}
	}

	c := &SQLiteCache{db: db, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	var expires int64
	err := c.db.QueryRowContext(ctx, "SELECT value, expires FROM cache WHERE key = ?", key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	if expires != 0 && expires <= c.now().UnixMilli() {
		return nil, ErrMiss
	}
	return value, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now().UnixMilli()
	var expires int64
	if ttl > 0 {
		expires = now + ttl.Milliseconds()
	}
	if value == nil {
		value = []byte{}
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache (key, value, set_at, expires) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, set_at = excluded.set_at, expires = excluded.expires
	`, key, value, now, expires)
	if err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}

// Clean removes expired entries and returns how many were removed.
func (c *SQLiteCache) Clean(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, "DELETE FROM cache WHERE expires <> 0 AND expires <= ?", c.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cache clean: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of rows, expired ones included.
func (c *SQLiteCache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("cache len: %w", err)
	}
	return n, nil
}
