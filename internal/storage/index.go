/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hkannostudio/internal/anno"
	"hkannostudio/internal/domain"
	applog "hkannostudio/internal/log"
	"hkannostudio/internal/version"
	"log/slog"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-workspace ephemeral/index data under the workspace root.
	IndexDirName  = ".hks"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the workspace's embedded index database file.
func IndexPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-workspace SQLite index exists at .hks/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables exist.
// The returned *sql.DB is ready for use. Callers may close it when no longer needed.
func InitOrOpenIndex(workspaceRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", workspaceRoot),
	)
	if strings.TrimSpace(workspaceRoot) == "" {
		return nil, errors.New("workspace root is required")
	}
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Join(workspaceRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .hks dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .hks dir: %w", err)
	}

	path := IndexPath(workspaceRoot)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Ensure WAL mode is active.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	// Enforce foreign keys just in case future schema uses them.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	// Ensure core index schema exists (entries, FTS, snapshots, previews)
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	// Run migrations to bring DB schema up to date
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	// Create tables if not exist
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	// Seed or update single-row version info
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	// Check if a version row exists
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Insert new row with current schemaVersion for a fresh DB
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; just log and continue
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Add indexes that speed up track and time-range filtered search
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_entries_track ON entries(track);`,
				`CREATE INDEX IF NOT EXISTS idx_entries_clip_t ON entries(clip_id, t);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best-effort FTS optimize (outside the tx)
			if _, err := db.ExecContext(ctx, `INSERT INTO fts_entries(fts_entries) VALUES('optimize')`); err != nil {
				// best-effort optimize; ignore errors
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Core entries table: searchable rows derived from the manifest and the
		// clip annotation text (annotations, track headers, clip metadata).
		`CREATE TABLE IF NOT EXISTS entries (
			entry_id INTEGER PRIMARY KEY,
			type     TEXT    NOT NULL,
			path     TEXT    NOT NULL,
			clip_id  TEXT,
			track    TEXT,
			t        REAL,
			text     TEXT
		);`,
		// Helpful indices for lookup
		`CREATE INDEX IF NOT EXISTS idx_entries_path ON entries(path);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_clip ON entries(clip_id);`,

		// Contentless FTS5 index fed from entries via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_entries USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		// Annotation text history per clip (editor change tracking)
		`CREATE TABLE IF NOT EXISTS text_snapshots (
			id      INTEGER PRIMARY KEY,
			clip_id TEXT    NOT NULL,
			ts      TEXT    NOT NULL,
			text    TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_text_snapshots_clip_ts ON text_snapshots(clip_id, ts);`,

		// Previews cache (tool-generated markup, rendered timeline strips)
		`CREATE TABLE IF NOT EXISTS previews (
			id            INTEGER PRIMARY KEY,
			clip_id       TEXT    NOT NULL,
			content_hash  TEXT    NOT NULL,
			preview_blob  BLOB,
			updated_at    TEXT    NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	// Triggers for contentless FTS synchronization with entries.text
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
			INSERT INTO fts_entries(rowid, text) VALUES (new.entry_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
			INSERT INTO fts_entries(fts_entries, rowid, text) VALUES ('delete', old.entry_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE OF text ON entries BEGIN
			INSERT INTO fts_entries(fts_entries, rowid, text) VALUES ('delete', old.entry_id, old.text);
			INSERT INTO fts_entries(rowid, text) VALUES (new.entry_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	// Perform previews schema migration/additional indexes for caching variants and LRU
	if err := EnsurePreviewsMigrated(ctx, db); err != nil {
		return err
	}
	return nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, workspaceRoot string, ws domain.Workspace) (bool, error) {
	path := IndexPath(workspaceRoot)
	// Try to open DB; if fails, attempt backup+delete+rebuild
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		backupIndexFile(path)
		_ = os.Remove(path)
		if rbErr := RebuildIndex(ctx, workspaceRoot, ws); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	defer db.Close()
	needs := false
	// quick_check for corruption
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	// Probe core table
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM entries LIMIT 1;`); err != nil {
			needs = true
		}
	}
	if !needs {
		return false, nil
	}
	// Backup and remove existing DB file
	backupIndexFile(path)
	_ = os.Remove(path)
	// Rebuild
	if err := RebuildIndex(ctx, workspaceRoot, ws); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .hks/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// BuildIndexIfEmpty performs a minimal background index build if the index has no user content.
// It ensures the DB exists and, if the entries table is empty, populates it from the given
// manifest and the clip annotation text mirrors.
func BuildIndexIfEmpty(ctx context.Context, workspaceRoot string, ws domain.Workspace) error {
	// Ensure the DB exists and is initialized
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	// Check if entries has any rows
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries;").Scan(&cnt); err != nil {
		return fmt.Errorf("check entries count: %w", err)
	}
	if cnt > 0 {
		return nil // already built
	}
	return rebuildEntriesFromWorkspace(ctx, db, workspaceRoot, ws)
}

// UpdateIndex updates the embedded index with changes from the workspace manifest.
// Minimal safe implementation: replace the entries content from the provided manifest.
func UpdateIndex(ctx context.Context, workspaceRoot string, ws domain.Workspace) error {
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	return rebuildEntriesFromWorkspace(ctx, db, workspaceRoot, ws)
}

// RebuildIndex drops and recreates core index tables and rebuilds content from the manifest.
// It preserves meta/version and text_snapshots. This is a safe operation; the searchable
// entries are derived from workspace.json and the clip annotation text.
func RebuildIndex(ctx context.Context, workspaceRoot string, ws domain.Workspace) error {
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	// Drop core tables inside a transaction and recreate schema
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TABLE IF EXISTS previews;",
		"DROP TRIGGER IF EXISTS entries_ai;",
		"DROP TRIGGER IF EXISTS entries_ad;",
		"DROP TRIGGER IF EXISTS entries_au;",
		"DROP TABLE IF EXISTS entries;",
		"DROP TABLE IF EXISTS fts_entries;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	// Recreate schema and populate
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return rebuildEntriesFromWorkspace(ctx, db, workspaceRoot, ws)
}

// rebuildEntriesFromWorkspace replaces the entries table content from the given manifest
// and the annotation text parsed out of each clip's text mirror.
func rebuildEntriesFromWorkspace(ctx context.Context, db *sql.DB, workspaceRoot string, ws domain.Workspace) error {
	// Build list of rows
	type row struct {
		typeStr string
		path    string
		clipID  sql.NullString
		track   sql.NullString
		t       sql.NullFloat64
		text    string
	}
	rows := make([]row, 0, 256)
	// Workspace-level metadata
	if s := strings.TrimSpace(ws.Name); s != "" {
		rows = append(rows, row{typeStr: "workspace_name", path: "workspace:name", text: s})
	}
	if s := strings.TrimSpace(ws.Metadata.Game); s != "" {
		rows = append(rows, row{typeStr: "workspace_game", path: "workspace:game", text: s})
	}
	if s := strings.TrimSpace(ws.Metadata.Skeleton); s != "" {
		rows = append(rows, row{typeStr: "workspace_skeleton", path: "workspace:skeleton", text: s})
	}
	if s := strings.TrimSpace(ws.Metadata.Author); s != "" {
		rows = append(rows, row{typeStr: "workspace_author", path: "workspace:author", text: s})
	}
	if s := strings.TrimSpace(ws.Metadata.Notes); s != "" {
		rows = append(rows, row{typeStr: "workspace_notes", path: "workspace:notes", text: s})
	}
	// Clip metadata and parsed annotation text
	wh := &WorkspaceHandle{Root: workspaceRoot, Workspace: ws}
	for _, c := range ws.Clips {
		cid := sql.NullString{String: c.ID, Valid: true}
		if s := strings.TrimSpace(c.DisplayName); s != "" {
			rows = append(rows, row{typeStr: "clip_name", path: "clip:" + c.ID + ":name", clipID: cid, text: s})
		}
		if s := strings.TrimSpace(strings.Join(c.Tags, ", ")); s != "" {
			rows = append(rows, row{typeStr: "clip_tags", path: "clip:" + c.ID + ":tags", clipID: cid, text: s})
		}
		if s := strings.TrimSpace(c.Notes); s != "" {
			rows = append(rows, row{typeStr: "clip_notes", path: "clip:" + c.ID + ":notes", clipID: cid, text: s})
		}
		text, err := ReadClipText(wh, c)
		if err != nil || text == "" {
			continue
		}
		tracks, _ := anno.Parse(text)
		for ti, tr := range tracks {
			trackName := sql.NullString{}
			if tr.Name != nil {
				trackName = sql.NullString{String: *tr.Name, Valid: true}
				if s := strings.TrimSpace(*tr.Name); s != "" {
					rows = append(rows, row{
						typeStr: "track",
						path:    fmt.Sprintf("clip:%s/track:%d", c.ID, ti),
						clipID:  cid,
						track:   trackName,
						text:    s,
					})
				}
			}
			for ai, a := range tr.Annotations {
				if a.Text == nil {
					continue
				}
				s := strings.TrimSpace(*a.Text)
				if s == "" {
					continue
				}
				rows = append(rows, row{
					typeStr: "annotation",
					path:    fmt.Sprintf("clip:%s/track:%d/anno:%d", c.ID, ti, ai),
					clipID:  cid,
					track:   trackName,
					t:       sql.NullFloat64{Float64: a.Time, Valid: true},
					text:    s,
				})
			}
		}
	}
	// Write in a transaction: clear entries and insert new rows.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear entries: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO entries(type, path, clip_id, track, t, text) VALUES(?,?,?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, r := range rows {
		if _, err := ins.ExecContext(ctx, r.typeStr, r.path, r.clipID, r.track, r.t, r.text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
