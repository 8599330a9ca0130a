/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"hkannostudio/internal/storage"
)

// SearchPG executes a search over the Postgres entries table using tsvector and filters
// and returns results mapped to storage.SearchResult to ease parity checks with the
// embedded per-workspace index.
func SearchPG(ctx context.Context, db *sql.DB, workspaceID int64, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT d.id AS entry_id, d.entry_type AS type, COALESCE(d.path,'') AS path, COALESCE(d.clip_id,'') AS clip_id, COALESCE(d.track,'') AS track, COALESCE(d.t,0) AS t, ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(d.body,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=10'), '') AS snippet ")
		b.WriteString("FROM entries d WHERE d.workspace_id = $2 AND d.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text, workspaceID)
	} else {
		b.WriteString("SELECT d.id AS entry_id, d.entry_type AS type, COALESCE(d.path,'') AS path, COALESCE(d.clip_id,'') AS clip_id, COALESCE(d.track,'') AS track, COALESCE(d.t,0) AS t, '' AS snippet ")
		b.WriteString("FROM entries d WHERE d.workspace_id = $1 ")
		args = append(args, workspaceID)
	}

	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Types filter
	if len(q.Types) > 0 {
		b.WriteString(" AND d.entry_type = ANY (" + place(q.Types) + ") ")
	}
	// Time range
	if q.TimeFrom > 0 && q.TimeTo > 0 && q.TimeTo >= q.TimeFrom {
		b.WriteString(" AND d.t BETWEEN " + place(q.TimeFrom) + " AND " + place(q.TimeTo) + " ")
	} else if q.TimeFrom > 0 {
		b.WriteString(" AND d.t >= " + place(q.TimeFrom) + " ")
	} else if q.TimeTo > 0 {
		b.WriteString(" AND d.t <= " + place(q.TimeTo) + " ")
	}
	// Track filter: exact track match when populated, else body/path contains
	if s := strings.TrimSpace(q.Track); s != "" {
		ss := strings.ToLower(s)
		b.WriteString(" AND ( (d.track IS NOT NULL AND lower(d.track) = " + place(ss) + ") OR lower(COALESCE(d.body,'')) LIKE " + place("%"+ss+"%") + " OR lower(COALESCE(d.path,'')) LIKE " + place("%track:"+ss+"%") + " ) ")
	}
	// Clip filter: restrict to rows of one clip
	if s := strings.TrimSpace(q.ClipID); s != "" {
		b.WriteString(" AND d.clip_id = " + place(s) + " ")
	}
	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY d.clip_id NULLS LAST, d.t NULLS LAST, d.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.EntryID, &r.Type, &r.Path, &r.ClipID, &r.Track, &r.Time, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
