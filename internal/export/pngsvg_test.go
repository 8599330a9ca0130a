/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportTimelinePNG(t *testing.T) {
	wh, clip := sampleWorkspace(t)
	out := filepath.Join(wh.Root, "exports", "strips", "runforward.png")
	if err := ExportTimelinePNG(wh, clip.ID, out, StripOptions{}); err != nil {
		t.Fatalf("export png: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 1200 {
		t.Fatalf("strip width: %d, want 1200", b.Dx())
	}
	// Two lanes of markers and a ruler need some height.
	if b.Dy() < 80 {
		t.Fatalf("strip height too small: %d", b.Dy())
	}
}

func TestExportTimelineSVG(t *testing.T) {
	wh, clip := sampleWorkspace(t)
	out := filepath.Join(wh.Root, "exports", "strips", "runforward.svg")
	if err := ExportTimelineSVG(wh, clip.ID, out, StripOptions{Width: 800}); err != nil {
		t.Fatalf("export svg: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(data)
	for _, want := range []string{"<svg", "width=\"800px\"", "SoundPlay", "Movement", "SoundPlay.FootLeft", "MovementStop"} {
		if !strings.Contains(s, want) {
			t.Fatalf("svg missing %q", want)
		}
	}
	// The sentinel annotation draws a marker but no label text.
	if strings.Contains(s, "1.200000") {
		t.Fatalf("bare annotation should not produce a label")
	}
}
