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
	"os"
	"path/filepath"
	"testing"

	"hkannostudio/internal/domain"
)

func TestClipFilePath_NilHandle(t *testing.T) {
	if p := ClipFilePath(nil, domain.Clip{Path: "clips/run.hkx"}); p != "" {
		t.Fatalf("expected empty path for nil handle, got %q", p)
	}
	if p := ClipTextPath(nil, domain.Clip{Path: "clips/run.hkx"}); p != "" {
		t.Fatalf("expected empty text path for nil handle, got %q", p)
	}
}

func TestReadClipText_MissingReturnsEmpty(t *testing.T) {
	root := t.TempDir()
	wh := &WorkspaceHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName)}
	clip := domain.Clip{ID: "c1", Path: "clips/idle.hkx"}
	s, err := ReadClipText(wh, clip)
	if err != nil {
		t.Fatalf("ReadClipText unexpected error for missing file: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for missing clip text, got %q", s)
	}
}

func TestWriteClipText_AndReadBack(t *testing.T) {
	root := t.TempDir()
	wh := &WorkspaceHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName)}
	clip := domain.Clip{ID: "c1", Path: "clips/attack/swing.hkx"}

	text := "# numOriginalFrames: 30\ntrackName: SoundPlay\n0.100000 SoundPlay.WeaponSwing\n"
	if err := WriteClipText(wh, clip, text); err != nil {
		t.Fatalf("WriteClipText error: %v", err)
	}
	// Verify file exists at expected location (parent dirs created on demand)
	p := ClipTextPath(wh, clip)
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected clip text file to exist at %s: %v", p, err)
	}
	// Read back and compare
	got, err := ReadClipText(wh, clip)
	if err != nil {
		t.Fatalf("ReadClipText error: %v", err)
	}
	if got != text {
		t.Fatalf("roundtrip mismatch: %q vs %q", got, text)
	}
}
