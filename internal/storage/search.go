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
	"strings"
)

// SearchQuery describes the in-app search request.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Filters are optional. Types can restrict to kinds like: annotation, track,
// clip_name, clip_notes, workspace_notes, etc.
// TimeFrom/To are inclusive seconds; 0 means unset.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text     string
	Track    string
	ClipID   string
	Types    []string
	TimeFrom float64
	TimeTo   float64
	Limit    int
	Offset   int
}

// SearchResult represents a single match row.
// Snippet is an optional highlighted excerpt using [ ] markers when FTS text is used.
// Time is 0 when the row is not an annotation. EntryID can be used with
// EventUsageByEntry to find other occurrences of the same event text.
type SearchResult struct {
	EntryID int64
	Type    string
	Path    string
	ClipID  string
	Track   string
	Time    float64
	Snippet string
}

// Search performs full-text search with optional filters over the embedded index.
// When q.Text is empty, it falls back to a non-FTS scan over entries with filters applied.
func Search(ctx context.Context, workspaceRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(workspaceRoot) == "" {
		return nil, errors.New("workspace root is required")
	}
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	// Build dynamic SQL
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT e.entry_id, e.type, e.path, COALESCE(e.clip_id,''), COALESCE(e.track,''), COALESCE(e.t,0), snippet(fts_entries, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_entries JOIN entries e ON fts_entries.rowid = e.entry_id\n")
		sb.WriteString("WHERE fts_entries MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT e.entry_id, e.type, e.path, COALESCE(e.clip_id,''), COALESCE(e.track,''), COALESCE(e.t,0), ''\n")
		sb.WriteString("FROM entries e\nWHERE 1=1\n")
	}
	// Filters
	// Types filter (IN list)
	if len(q.Types) > 0 {
		sb.WriteString(" AND e.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	// Time range
	if q.TimeFrom > 0 && q.TimeTo > 0 && q.TimeTo >= q.TimeFrom {
		sb.WriteString(" AND e.t BETWEEN ? AND ?\n")
		args = append(args, q.TimeFrom, q.TimeTo)
	} else if q.TimeFrom > 0 {
		sb.WriteString(" AND e.t >= ?\n")
		args = append(args, q.TimeFrom)
	} else if q.TimeTo > 0 {
		sb.WriteString(" AND e.t <= ?\n")
		args = append(args, q.TimeTo)
	}
	// Track filter: prefer exact track match when populated, else fallback to text/path contains
	if s := strings.TrimSpace(q.Track); s != "" {
		ss := strings.ToLower(s)
		sb.WriteString(" AND ( (e.track IS NOT NULL AND lower(e.track)=?) OR lower(e.text) LIKE ? OR lower(e.path) LIKE ? )\n")
		args = append(args, ss, likeContains(ss), likeContains("track:"+ss))
	}
	// Clip filter: restrict to rows of one clip
	if s := strings.TrimSpace(q.ClipID); s != "" {
		sb.WriteString(" AND e.clip_id = ?\n")
		args = append(args, s)
	}
	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY e.clip_id NULLS LAST, e.t NULLS LAST, e.entry_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.EntryID, &r.Type, &r.Path, &r.ClipID, &r.Track, &r.Time, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventUsage returns annotation rows carrying exactly the given event text,
// across all clips. Useful for "where else does this event fire" lookups.
func EventUsage(ctx context.Context, workspaceRoot string, event string, limit, offset int) ([]SearchResult, error) {
	if strings.TrimSpace(event) == "" {
		return nil, errors.New("event text is required")
	}
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT e.entry_id, e.type, e.path, COALESCE(e.clip_id,''), COALESCE(e.track,''), COALESCE(e.t,0), ''
		FROM entries e
		WHERE e.type = 'annotation' AND e.text = ?
		ORDER BY e.clip_id, e.t, e.entry_id
		LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, q, event, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("event-usage query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.EntryID, &r.Type, &r.Path, &r.ClipID, &r.Track, &r.Time, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventUsageByEntry resolves an annotation entry by id then returns other
// occurrences of its event text (the source entry itself is excluded).
func EventUsageByEntry(ctx context.Context, workspaceRoot string, entryID int64, limit, offset int) ([]SearchResult, error) {
	db, err := InitOrOpenIndex(workspaceRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var text string
	err = db.QueryRowContext(ctx, "SELECT text FROM entries WHERE entry_id=? AND type='annotation'", entryID).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []SearchResult{}, nil
		}
		return nil, err
	}
	res, err := EventUsage(ctx, workspaceRoot, text, limit, offset)
	if err != nil {
		return nil, err
	}
	out := res[:0]
	for _, r := range res {
		if r.EntryID != entryID {
			out = append(out, r)
		}
	}
	return out, nil
}

func likeContains(s string) string { return "%" + s + "%" }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
