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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTextSnapshotsCRUD(t *testing.T) {
	root := t.TempDir()
	wh := &WorkspaceHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName)}
	ctx := context.Background()
	// Ensure DB exists
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex error: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("db.Close error: %v", err)
	}
	const clip = "c1"
	if err := SaveTextSnapshot(ctx, wh, clip, "trackName: A\n", time.Now()); err != nil {
		t.Fatalf("SaveTextSnapshot: %v", err)
	}
	txt, _, err := GetLatestTextSnapshot(ctx, wh, clip)
	if err != nil || txt != "trackName: A\n" {
		t.Fatalf("GetLatestTextSnapshot got %q err %v", txt, err)
	}
	// Add more snapshots
	for i := 0; i < 5; i++ {
		s := string(rune('a' + i))
		if err := SaveTextSnapshot(ctx, wh, clip, s, time.Now().Add(time.Duration(i+1)*time.Millisecond)); err != nil {
			t.Fatalf("SaveTextSnapshot %d: %v", i, err)
		}
	}
	list, err := ListTextSnapshots(ctx, wh, clip, 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListTextSnapshots got %d err %v", len(list), err)
	}
	// Snapshots of other clips stay invisible
	if err := SaveTextSnapshot(ctx, wh, "other", "x", time.Now()); err != nil {
		t.Fatalf("SaveTextSnapshot other: %v", err)
	}
	list, err = ListTextSnapshots(ctx, wh, clip, 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListTextSnapshots after other clip got %d err %v", len(list), err)
	}
	// Prune keep last 3
	n, err := PruneOldTextSnapshots(ctx, wh, clip, 3)
	if err != nil {
		t.Fatalf("PruneOldTextSnapshots: %v", err)
	}
	if n <= 0 {
		t.Fatalf("expected deletions > 0, got %d", n)
	}
	list, err = ListTextSnapshots(ctx, wh, clip, 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListTextSnapshots after prune got %d err %v", len(list), err)
	}
	// Clean up DB file
	_ = os.Remove(IndexPath(root))
}
