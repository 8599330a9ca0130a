/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// language=SQL
// dialect=SQLite
const insertTextSnapshotSQL = `INSERT INTO text_snapshots(clip_id, ts, text) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestTextSnapshotSQL = `SELECT ts, text FROM text_snapshots WHERE clip_id = ? ORDER BY ts DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listTextSnapshotsSQL = `SELECT ts, text FROM text_snapshots WHERE clip_id = ? ORDER BY ts DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldTextSnapshotsSQL = `DELETE FROM text_snapshots WHERE clip_id = ? AND id NOT IN (
	SELECT id FROM text_snapshots WHERE clip_id = ? ORDER BY ts DESC LIMIT ?
)`

// SaveTextSnapshot persists a full annotation-text snapshot for a clip with a timestamp.
// The index database is ephemeral and derived; this history is meant for editor change
// tracking, not canonical storage — the animation file remains the source of truth.
func SaveTextSnapshot(ctx context.Context, wh *WorkspaceHandle, clipID string, text string, ts time.Time) error {
	if wh == nil {
		return errors.New("nil WorkspaceHandle")
	}
	// Open or init index DB
	db, err := InitOrOpenIndex(wh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertTextSnapshotSQL, clipID, ts.UTC().Format(time.RFC3339Nano), text)
	return err
}

// GetLatestTextSnapshot returns the latest snapshot text and timestamp for a clip, or empty if none.
func GetLatestTextSnapshot(ctx context.Context, wh *WorkspaceHandle, clipID string) (string, time.Time, error) {
	if wh == nil {
		return "", time.Time{}, errors.New("nil WorkspaceHandle")
	}
	db, err := InitOrOpenIndex(wh.Root)
	if err != nil {
		return "", time.Time{}, err
	}
	defer func() { _ = db.Close() }()
	var tsStr string
	var txt string
	err = db.QueryRowContext(ctx, selectLatestTextSnapshotSQL, clipID).Scan(&tsStr, &txt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		return txt, time.Time{}, nil // return text even if ts parse fails
	}
	return txt, ts, nil
}

// ListTextSnapshots returns up to limit most recent snapshots for a clip.
func ListTextSnapshots(ctx context.Context, wh *WorkspaceHandle, clipID string, limit int) ([]struct {
	TS   time.Time
	Text string
}, error) {
	if wh == nil {
		return nil, errors.New("nil WorkspaceHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(wh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listTextSnapshotsSQL, clipID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []struct {
		TS   time.Time
		Text string
	}
	for rows.Next() {
		var tsStr string
		var txt string
		if err := rows.Scan(&tsStr, &txt); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, struct {
			TS   time.Time
			Text string
		}{TS: ts, Text: txt})
	}
	return out, rows.Err()
}

// PruneOldTextSnapshots keeps at most keepLast snapshots for the clip and deletes older ones.
func PruneOldTextSnapshots(ctx context.Context, wh *WorkspaceHandle, clipID string, keepLast int) (int64, error) {
	if wh == nil {
		return 0, errors.New("nil WorkspaceHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(wh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldTextSnapshotsSQL, clipID, clipID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
