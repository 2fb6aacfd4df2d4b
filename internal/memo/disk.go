package memo

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema

const diskSchema = `
CREATE TABLE IF NOT EXISTS evaluation_cache (
	cache_key   TEXT PRIMARY KEY,
	payload     BLOB NOT NULL,
	created_at  TEXT NOT NULL
);
`

// #endregion schema

// #region disk-cache

// DiskCache persists evaluation results in sqlite, for reuse between
// processes running the same round of experiments or restarting after
// a failure. Keys must fully identify dataset and features; a stale
// key silently serves stale rows.
type DiskCache struct {
	db *sql.DB
}

// OpenDisk opens (creating if needed) a disk cache at the given path.
func OpenDisk(path string) (*DiskCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(diskSchema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DiskCache{db: db}, nil
}

// Close closes the underlying database connection.
func (c *DiskCache) Close() error {
	return c.db.Close()
}

// Get loads and decodes the result stored under key, if any.
func (c *DiskCache) Get(key string) (*Result, bool, error) {
	var payload []byte
	err := c.db.QueryRow(
		`SELECT payload FROM evaluation_cache WHERE cache_key = ?`, key,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	var r Result
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&r); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return &r, true, nil
}

// Put stores the result under key. An existing entry is kept as is:
// results for the same key are by construction identical.
func (c *DiskCache) Put(key string, r *Result) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	_, err := c.db.Exec(
		`INSERT OR IGNORE INTO evaluation_cache (cache_key, payload, created_at) VALUES (?, ?, ?)`,
		key, buf.Bytes(), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

// #endregion disk-cache
