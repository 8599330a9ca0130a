/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/zeebo/blake3"
)

// PreviewKind is a type discriminator for previews table rows.
// - markup: tool-generated markup text for an annotation document state
// - timeline: rendered timeline strip image (PNG)
const (
	PreviewKindMarkup   = "markup"
	PreviewKindTimeline = "timeline"
)

// ContentHash returns the hex BLAKE3 digest of data. Previews are keyed by the
// hash of the annotation text they were generated from, so a stale cache entry
// can never be served for edited text.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EnsurePreviewsMigrated guarantees the previews table has columns needed for
// caching variants and LRU tracking. It is safe to call multiple times.
func EnsurePreviewsMigrated(ctx context.Context, db *sql.DB) error {
	// Ensure table exists (older ensureIndexSchema will have created a minimal version)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS previews (
		id            INTEGER PRIMARY KEY,
		clip_id       TEXT    NOT NULL,
		content_hash  TEXT    NOT NULL,
		preview_blob  BLOB,
		updated_at    TEXT    NOT NULL
	);`); err != nil {
		return fmt.Errorf("ensure previews table: %w", err)
	}
	// Inspect current columns
	rows, err := db.QueryContext(ctx, `PRAGMA table_info(previews);`)
	if err != nil {
		return fmt.Errorf("table_info previews: %w", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		cols[name] = true
	}
	if rows.Err() != nil {
		return rows.Err()
	}
	// Add missing columns for new schema
	alter := func(sqlStmt string) error {
		if _, err := db.ExecContext(ctx, sqlStmt); err != nil {
			return err
		}
		return nil
	}
	if !cols["kind"] {
		if err := alter(`ALTER TABLE previews ADD COLUMN kind TEXT DEFAULT 'markup'`); err != nil {
			return fmt.Errorf("add kind: %w", err)
		}
	}
	if !cols["w"] {
		if err := alter(`ALTER TABLE previews ADD COLUMN w INTEGER DEFAULT 0`); err != nil {
			return fmt.Errorf("add w: %w", err)
		}
	}
	if !cols["h"] {
		if err := alter(`ALTER TABLE previews ADD COLUMN h INTEGER DEFAULT 0`); err != nil {
			return fmt.Errorf("add h: %w", err)
		}
	}
	if !cols["size"] {
		if err := alter(`ALTER TABLE previews ADD COLUMN size INTEGER DEFAULT 0`); err != nil {
			return fmt.Errorf("add size: %w", err)
		}
	}
	if !cols["last_access"] {
		if err := alter(`ALTER TABLE previews ADD COLUMN last_access TEXT`); err != nil {
			return fmt.Errorf("add last_access: %w", err)
		}
	}
	// Create unique index covering variant dimensions
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(clip_id, content_hash, kind, w, h)`); err != nil {
		return fmt.Errorf("create variant index: %w", err)
	}
	// Also helpful index for LRU eviction by access time
	_, _ = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access)`)
	return nil
}

// GetPreview returns the blob bytes for a preview of given key and updates last_access.
// Returns nil without error on a cache miss.
func GetPreview(ctx context.Context, workspaceRoot string, clipID, contentHash, kind string, w int, h int) ([]byte, error) {
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := EnsurePreviewsMigrated(ctx, db); err != nil {
		return nil, err
	}
	var blob []byte
	err = db.QueryRowContext(ctx, `SELECT preview_blob FROM previews WHERE clip_id=? AND content_hash=? AND kind=? AND w=? AND h=?`,
		clipID, contentHash, kind, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	// touch
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE clip_id=? AND content_hash=? AND kind=? AND w=? AND h=?`,
		now, clipID, contentHash, kind, w, h)
	return blob, nil
}

// PutPreview upserts a preview blob and enforces the cache size cap via LRU eviction.
// For kind==markup, blob bytes are the markup text; for kind==timeline, PNG bytes.
func PutPreview(ctx context.Context, workspaceRoot string, clipID, contentHash, kind string, w int, h int, blob []byte) error {
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := EnsurePreviewsMigrated(ctx, db); err != nil {
		return err
	}
	if kind != PreviewKindMarkup && kind != PreviewKindTimeline {
		return fmt.Errorf("invalid kind: %s", kind)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	size := len(blob)
	// Upsert
	_, err = db.ExecContext(ctx, `INSERT INTO previews(clip_id,content_hash,kind,w,h,preview_blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(clip_id,content_hash,kind,w,h) DO UPDATE SET preview_blob=excluded.preview_blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		clipID, contentHash, kind, w, h, blob, size, now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	// Enforce cap
	capBytes := MaxPreviewsBytesFromEnv()
	if capBytes > 0 {
		if err := EvictPreviewsToFit(ctx, db, capBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreatePreview fetches a preview or generates and stores it using the provided generator.
func GetOrCreatePreview(ctx context.Context, workspaceRoot string, clipID, contentHash, kind string, w int, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	// Try to get existing first
	if b, err := GetPreview(ctx, workspaceRoot, clipID, contentHash, kind, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if err := PutPreview(ctx, workspaceRoot, clipID, contentHash, kind, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func EvictPreviewsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	// Select victim ids ordered by last_access asc (oldest first), NULLs first
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]int64, 0, 32)
	var cur = total
	for rows.Next() {
		var id int64
		var sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Important: close the rows cursor before attempting to write
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	// Delete selected ids
	// Build placeholders
	sqlBase := `DELETE FROM previews WHERE id IN (`
	for i := range toDelete {
		if i > 0 {
			sqlBase += ","
		}
		sqlBase += "?"
	}
	sqlBase += ")"
	args := make([]any, len(toDelete))
	for i, v := range toDelete {
		args[i] = v
	}
	if _, err := db.ExecContext(ctx, sqlBase, args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalPreviewBytes returns total bytes tracked by previews.size
func TotalPreviewBytes(ctx context.Context, workspaceRoot string) (int64, error) {
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MaxPreviewsBytesFromEnv reads HKS_PREVIEWS_MAX_BYTES, defaulting to 256MB if unset.
func MaxPreviewsBytesFromEnv() int64 {
	v := os.Getenv("HKS_PREVIEWS_MAX_BYTES")
	if v == "" {
		return 256 * 1024 * 1024 // 256MB
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 256 * 1024 * 1024
	}
	return n
}
