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

func TestDetectAndRebuildIndexOnCorruption(t *testing.T) {
	root := t.TempDir()
	wh := initTestWorkspaceWithClip(t, root)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Verify healthy index reports no rebuild
	rebuilt, err := DetectAndRebuildIndex(ctx, root, wh.Workspace)
	if err != nil {
		t.Fatalf("detect on healthy index: %v", err)
	}
	if rebuilt {
		t.Fatalf("healthy index should not be rebuilt")
	}

	// Corrupt the index file outright
	idx := IndexPath(root)
	if err := os.WriteFile(idx, []byte("THIS IS NOT A SQLITE FILE"), 0o644); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}
	// Remove WAL side files so the corruption is not masked
	_ = os.Remove(idx + "-wal")
	_ = os.Remove(idx + "-shm")

	rebuilt, err = DetectAndRebuildIndex(ctx, root, wh.Workspace)
	if err != nil {
		t.Fatalf("detect on corrupted index: %v", err)
	}
	if !rebuilt {
		t.Fatalf("expected rebuild after corruption")
	}

	// Backup of the corrupt file should exist under .hks/backups
	backups := filepath.Join(root, IndexDirName, "backups")
	entries, err := os.ReadDir(backups)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected corrupt index backup in %s (err=%v)", backups, err)
	}

	// Rebuilt index must contain the annotation content again
	res, err := Search(ctx, root, SearchQuery{Text: "FootLeft"})
	if err != nil {
		t.Fatalf("search after rebuild: %v", err)
	}
	if len(res) == 0 {
		t.Fatalf("expected annotation hits after rebuild")
	}
}

// initTestWorkspaceWithClip builds a workspace with one clip whose annotation
// text contains a searchable event name.
func initTestWorkspaceWithClip(t *testing.T, root string) *WorkspaceHandle {
	t.Helper()
	wh, err := InitWorkspace(root, defaultMinimalWorkspace())
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	clip, err := AddClip(wh, "Run Forward", "clips/runforward.hkx", "hkx")
	if err != nil {
		t.Fatalf("AddClip: %v", err)
	}
	text := "# numAnnotationTracks: 1\n" +
		"trackName: SoundPlay\n" +
		"# numAnnotations: 2\n" +
		"0.100000 SoundPlay.FootLeft\n" +
		"0.600000 SoundPlay.FootRight\n"
	if err := WriteClipText(wh, clip, text); err != nil {
		t.Fatalf("WriteClipText: %v", err)
	}
	if err := Save(wh); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := RebuildIndex(ctx, root, wh.Workspace); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	return wh
}
