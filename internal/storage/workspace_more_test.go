/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"hkannostudio/internal/domain"
)

func TestSaveAsAndClipTextIO(t *testing.T) {
	root := t.TempDir()
	wh, err := InitWorkspace(root, domain.Workspace{Name: "Orig"})
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}

	// Change workspace and SaveAs to new root
	wh.Workspace.Name = "Renamed"
	newRoot := filepath.Join(root, "newws")
	if err := SaveAs(wh, newRoot); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if wh.Root != newRoot || wh.ManifestPath != filepath.Join(newRoot, ManifestFileName) {
		t.Fatalf("WorkspaceHandle paths not updated: %+v", wh)
	}

	// Manifest at new location should reflect updated name
	b, err := os.ReadFile(wh.ManifestPath)
	if err != nil {
		t.Fatalf("read new manifest: %v", err)
	}
	var got domain.Workspace
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal new manifest: %v", err)
	}
	if got.Name != "Renamed" {
		t.Fatalf("unexpected workspace name in new manifest: %q", got.Name)
	}

	// ClipTextPath should replace the animation extension with the text suffix
	clip := domain.Clip{ID: "c1", DisplayName: "Run", Path: "clips/run.hkx"}
	tp := ClipTextPath(wh, clip)
	if tp != filepath.Join(newRoot, "clips", "run"+ClipTextSuffix) {
		t.Fatalf("clip text path mismatch: %q", tp)
	}

	// ReadClipText should be empty when missing
	txt, err := ReadClipText(wh, clip)
	if err != nil || txt != "" {
		t.Fatalf("expected empty clip text, got %q err=%v", txt, err)
	}

	// WriteClipText then read back
	content := "trackName: SoundPlay\n0.266667 SoundPlay.FootLeft\n"
	if err := WriteClipText(wh, clip, content); err != nil {
		t.Fatalf("WriteClipText: %v", err)
	}
	txt, err = ReadClipText(wh, clip)
	if err != nil || txt != content {
		t.Fatalf("ReadClipText mismatch: %q err=%v", txt, err)
	}
}
