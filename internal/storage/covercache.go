/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "nasgame/internal/log"
	"nasgame/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// cacheSchemaVersion tracks the cover cache schema. Bump it together with a
// new case in migrateCoverCache.
const cacheSchemaVersion = 1

// tsLayout keeps fixed-width timestamps so they sort lexicographically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// ThumbKey identifies one cached thumbnail. Source files are keyed by path,
// modification time and size so an edited image is never served stale.
type ThumbKey struct {
	Path    string
	ModUnix int64
	Size    int64
	W, H    int
}

// KeyForFile stats path and builds the key for a w x h thumbnail of it.
func KeyForFile(path string, w, h int) (ThumbKey, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return ThumbKey{}, err
	}
	return ThumbKey{Path: path, ModUnix: fi.ModTime().UnixNano(), Size: fi.Size(), W: w, H: h}, nil
}

// CoverCache stores encoded cover thumbnails in a SQLite file and evicts the
// least recently used entries once the total blob size exceeds MaxBytes.
// It is shared by every card, unlike cover resolution itself.
type CoverCache struct {
	db       *sql.DB
	maxBytes int64
	log      *slog.Logger
}

// OpenCoverCache opens (creating if needed) the cache database at path.
// maxBytes <= 0 disables eviction.
func OpenCoverCache(path string, maxBytes int64) (*CoverCache, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "cover_cache_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cover cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := migrateCoverCache(ctx, db); err != nil {
		_ = db.Close()
		l.Error("migrate cover cache failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("cover cache ready")
	return &CoverCache{db: db, maxBytes: maxBytes, log: applog.WithComponent("storage")}, nil
}

// Close closes the database.
func (c *CoverCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func migrateCoverCache(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS version (
		id          INTEGER PRIMARY KEY CHECK(id=1),
		schema      INTEGER NOT NULL,
		app         TEXT,
		updated_at  TEXT NOT NULL
	);`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cur = 0
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	}
	for cur < cacheSchemaVersion {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		var stmts []string
		switch next {
		case 1:
			stmts = []string{
				`CREATE TABLE IF NOT EXISTS thumbs (
					id          INTEGER PRIMARY KEY,
					path        TEXT    NOT NULL,
					mod_unix    INTEGER NOT NULL,
					src_size    INTEGER NOT NULL,
					w           INTEGER NOT NULL,
					h           INTEGER NOT NULL,
					blob        BLOB    NOT NULL,
					size        INTEGER NOT NULL,
					updated_at  TEXT    NOT NULL,
					last_access TEXT
				);`,
				`CREATE UNIQUE INDEX IF NOT EXISTS ux_thumbs_key ON thumbs(path, mod_unix, src_size, w, h);`,
				`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access);`,
			}
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", next, err)
			}
		}
		now := time.Now().UTC().Format(tsLayout)
		if _, err := tx.ExecContext(ctx, `INSERT INTO version(id, schema, app, updated_at) VALUES(1, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET schema=excluded.schema, app=excluded.app, updated_at=excluded.updated_at`,
			next, version.String(), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// Get returns the cached blob for k and bumps its access time. A miss
// returns (nil, false, nil).
func (c *CoverCache) Get(ctx context.Context, k ThumbKey) ([]byte, bool, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT blob FROM thumbs WHERE path=? AND mod_unix=? AND src_size=? AND w=? AND h=?`,
		k.Path, k.ModUnix, k.Size, k.W, k.H).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query thumb: %w", err)
	}
	now := time.Now().UTC().Format(tsLayout)
	_, _ = c.db.ExecContext(ctx, `UPDATE thumbs SET last_access=? WHERE path=? AND mod_unix=? AND src_size=? AND w=? AND h=?`,
		now, k.Path, k.ModUnix, k.Size, k.W, k.H)
	return blob, true, nil
}

// Put upserts the blob for k, drops older versions of the same source file
// and enforces the size cap.
func (c *CoverCache) Put(ctx context.Context, k ThumbKey, blob []byte) error {
	if len(blob) == 0 {
		return errors.New("empty thumbnail blob")
	}
	now := time.Now().UTC().Format(tsLayout)
	if _, err := c.db.ExecContext(ctx, `DELETE FROM thumbs WHERE path=? AND w=? AND h=? AND (mod_unix<>? OR src_size<>?)`,
		k.Path, k.W, k.H, k.ModUnix, k.Size); err != nil {
		return fmt.Errorf("drop stale thumbs: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `INSERT INTO thumbs(path,mod_unix,src_size,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(path,mod_unix,src_size,w,h) DO UPDATE SET blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		k.Path, k.ModUnix, k.Size, k.W, k.H, blob, len(blob), now, now); err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if c.maxBytes > 0 {
		return c.evictToFit(ctx, c.maxBytes)
	}
	return nil
}

// GetOrCreate returns the cached blob for k or stores what gen produces.
func (c *CoverCache) GetOrCreate(ctx context.Context, k ThumbKey, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, ok, err := c.Get(ctx, k); err != nil {
		return nil, err
	} else if ok {
		return b, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Put(ctx, k, data); err != nil {
		// the thumbnail is still usable even when caching it failed
		c.log.Warn("cover cache put failed", slog.String("path", k.Path), slog.Any("err", err))
	}
	return data, nil
}

// TotalBytes returns the sum of cached blob sizes.
func (c *CoverCache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Clear removes every cached thumbnail.
func (c *CoverCache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM thumbs`)
	return err
}

// evictToFit deletes least-recently-used rows until the total size fits capBytes.
func (c *CoverCache) evictToFit(ctx context.Context, capBytes int64) error {
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return fmt.Errorf("sum thumbs size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, size FROM thumbs ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for cur > capBytes && rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the cursor must be closed before writing with a single connection
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM thumbs WHERE id IN (?` + strings.Repeat(",?", len(victims)-1) + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	c.log.Debug("cover cache evicted", slog.Int("rows", len(victims)), slog.Int64("bytes", total-cur))
	return nil
}
