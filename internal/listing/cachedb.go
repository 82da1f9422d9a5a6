package listing

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteCache is a CacheStore backed by a SQLite database, so cached
// listings survive process restarts. Items are stored as one JSON blob
// per listing, not one row per entry: a listing is always read and
// replaced whole.
type sqliteCache struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteCache opens (creating if needed) a SQLite-backed CacheStore
// at dbPath.
func NewSQLiteCache(dbPath string) (CacheStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	pragmas := `
	PRAGMA journal_mode = WAL;
	PRAGMA synchronous = NORMAL;
	PRAGMA temp_store = memory;
	`
	if _, err := db.Exec(pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		connection_id TEXT NOT NULL,
		bucket        TEXT NOT NULL,
		prefix        TEXT NOT NULL,
		fetched_at    INTEGER NOT NULL,
		items         TEXT NOT NULL,
		PRIMARY KEY (connection_id, bucket, prefix)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &sqliteCache{db: db}, nil
}

func (c *sqliteCache) Get(key CacheKey) (*CacheEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var fetchedAt int64
	var blob string
	err := c.db.QueryRow(`
		SELECT fetched_at, items FROM listings
		WHERE connection_id = ? AND bucket = ? AND prefix = ?`,
		key.ConnectionID, key.Bucket, key.Prefix,
	).Scan(&fetchedAt, &blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var items []Entry
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	return &CacheEntry{
		Key:       key,
		Timestamp: time.UnixMilli(fetchedAt),
		Items:     items,
	}, true, nil
}

func (c *sqliteCache) Put(key CacheKey, items []Entry, at time.Time) error {
	if items == nil {
		items = []Entry{}
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.Exec(`
		INSERT INTO listings (connection_id, bucket, prefix, fetched_at, items)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO UPDATE SET
			fetched_at = excluded.fetched_at,
			items = excluded.items`,
		key.ConnectionID, key.Bucket, key.Prefix, at.UnixMilli(), string(blob),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (c *sqliteCache) Delete(key CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`
		DELETE FROM listings
		WHERE connection_id = ? AND bucket = ? AND prefix = ?`,
		key.ConnectionID, key.Bucket, key.Prefix,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (c *sqliteCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(`DELETE FROM listings`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (c *sqliteCache) PurgeExpired(ttl time.Duration, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := now.Add(-ttl).UnixMilli()
	res, err := c.db.Exec(`DELETE FROM listings WHERE fetched_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (c *sqliteCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
