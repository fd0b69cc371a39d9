// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotCached is returned by MediaCache.Get on a miss.
var ErrNotCached = errors.New("media not cached")

const mediaSchema = `
CREATE TABLE IF NOT EXISTS media (
	key         TEXT PRIMARY KEY,
	data        BLOB NOT NULL,
	size        INTEGER NOT NULL,
	accessed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS media_accessed ON media(accessed_at);
`

// MediaCache stores downloaded media keyed by mxc URI, evicting the least
// recently used entries once the total size passes maxBytes.
type MediaCache struct {
	db       *sql.DB
	maxBytes int64
	now      func() time.Time
}

// OpenMediaCache opens the cache database at path. maxBytes <= 0 disables
// eviction.
func OpenMediaCache(path string, maxBytes int64) (*MediaCache, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	c, err := NewMediaCache(db, maxBytes)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewMediaCache uses an already opened database.
func NewMediaCache(db *sql.DB, maxBytes int64) (*MediaCache, error) {
	if _, err := db.Exec(mediaSchema); err != nil {
		return nil, fmt.Errorf("create media schema: %w", err)
	}
	return &MediaCache{db: db, maxBytes: maxBytes, now: time.Now}, nil
}

// Get returns the cached bytes for key and refreshes its access time.
func (c *MediaCache) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT data FROM media WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("read media %s: %w", key, err)
	}
	if _, err := c.db.ExecContext(ctx, `UPDATE media SET accessed_at = ? WHERE key = ?`, c.now().UnixNano(), key); err != nil {
		return nil, fmt.Errorf("touch media %s: %w", key, err)
	}
	return data, nil
}

// Put stores data under key and evicts old entries if over budget.
func (c *MediaCache) Put(ctx context.Context, key string, data []byte) error {
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO media (key, data, size, accessed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, size = excluded.size, accessed_at = excluded.accessed_at`,
		key, data, len(data), c.now().UnixNano())
	if err != nil {
		return fmt.Errorf("store media %s: %w", key, err)
	}
	return c.evict(ctx)
}

// Size returns the total cached bytes.
func (c *MediaCache) Size(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	if err := c.db.QueryRowContext(ctx, `SELECT SUM(size) FROM media`).Scan(&total); err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// Clear removes every entry, as on logout.
func (c *MediaCache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM media`)
	return err
}

// Close closes the underlying database.
func (c *MediaCache) Close() error {
	return c.db.Close()
}

func (c *MediaCache) evict(ctx context.Context) error {
	if c.maxBytes <= 0 {
		return nil
	}
	total, err := c.Size(ctx)
	if err != nil {
		return err
	}
	if total <= c.maxBytes {
		return nil
	}

	rows, err := c.db.QueryContext(ctx, `SELECT key, size FROM media ORDER BY accessed_at ASC`)
	if err != nil {
		return err
	}
	var victims []string
	for rows.Next() && total > c.maxBytes {
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			rows.Close()
			return err
		}
		victims = append(victims, key)
		total -= size
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, key := range victims {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM media WHERE key = ?`, key); err != nil {
			return fmt.Errorf("evict media %s: %w", key, err)
		}
	}
	return nil
}
