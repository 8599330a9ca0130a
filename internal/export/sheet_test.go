/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"os"
	"path/filepath"
	"testing"

	"hkannostudio/internal/domain"
	"hkannostudio/internal/storage"
)

const sampleText = "# numOriginalFrames: 121\n" +
	"# duration: 4.033333\n" +
	"# numAnnotationTracks: 2\n" +
	"\n" +
	"trackName: SoundPlay\n" +
	"# numAnnotations: 3\n" +
	"0.100000 SoundPlay.FootLeft\n" +
	"0.600000 SoundPlay.FootRight\n" +
	"1.200000\n" +
	"\n" +
	"trackName: Movement\n" +
	"# numAnnotations: 1\n" +
	"3.900000 MovementStop\n"

func sampleWorkspace(t *testing.T) (*storage.WorkspaceHandle, domain.Clip) {
	t.Helper()
	root := t.TempDir()
	wh, err := storage.InitWorkspace(root, domain.Workspace{
		Name:     "Anim Review",
		Metadata: domain.Metadata{Game: "Skyrim SE", Skeleton: "NPC Root [Root]"},
	})
	if err != nil {
		t.Fatalf("init workspace: %v", err)
	}
	clip, err := storage.AddClip(wh, "Run Forward", "clips/runforward.hkx", "win32")
	if err != nil {
		t.Fatalf("add clip: %v", err)
	}
	if err := storage.WriteClipText(wh, clip, sampleText); err != nil {
		t.Fatalf("write clip text: %v", err)
	}
	if err := storage.Save(wh); err != nil {
		t.Fatalf("save workspace: %v", err)
	}
	return wh, clip
}

func TestExportTimingSheetPDF_CreatesFile(t *testing.T) {
	wh, clip := sampleWorkspace(t)
	out := filepath.Join(wh.Root, "exports", "runforward-sheet.pdf")
	if err := ExportTimingSheetPDF(wh, clip.ID, out, SheetOptions{IncludeMeta: true}); err != nil {
		t.Fatalf("export: %v", err)
	}
	st, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() <= 0 {
		t.Fatalf("pdf file empty")
	}
}

func TestExportTimingSheetPDF_RelativePathAndMissingClip(t *testing.T) {
	wh, clip := sampleWorkspace(t)
	// Relative paths land under <workspace>/exports.
	if err := ExportTimingSheetPDF(wh, clip.ID, "sheet.pdf", SheetOptions{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(wh.Root, "exports", "sheet.pdf")); err != nil {
		t.Fatalf("expected sheet under exports: %v", err)
	}

	if err := ExportTimingSheetPDF(wh, "no-such-clip", "x.pdf", SheetOptions{}); err == nil {
		t.Fatalf("expected error for unknown clip")
	}
	if err := ExportTimingSheetPDF(nil, clip.ID, "x.pdf", SheetOptions{}); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}
