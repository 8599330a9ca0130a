/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package presets

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const combatYAML = `name: Combat Basics
groups:
  - name: Footsteps
    events:
      - text: SoundPlay.FootLeft
        at: 0.25
      - text: SoundPlay.FootRight
        at: 0.75
`

func TestExportAndInstallPackArchive(t *testing.T) {
	// Create temp workspace with presets
	ws := t.TempDir()
	dir := Dir(ws)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir presets: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "combat.yaml"), []byte(combatYAML), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	sub := filepath.Join(dir, "team")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir team: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "README.txt"), []byte("shared packs"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	// Export pack
	zipPath := filepath.Join(ws, "out.zip")
	if err := ExportPacks(ws, zipPath); err != nil {
		t.Fatalf("export pack: %v", err)
	}
	st, err := os.Stat(zipPath)
	if err != nil || st.Size() == 0 {
		t.Fatalf("zip not created or empty: %v", err)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	_ = r.Close()

	// Install into a new workspace
	ws2 := t.TempDir()
	installed, err := InstallPackArchive(ws2, zipPath)
	if err != nil {
		t.Fatalf("install pack: %v", err)
	}
	if installed != 2 {
		t.Fatalf("expected installed=2, got %d", installed)
	}
	if _, err := os.Stat(filepath.Join(ws2, "presets", "combat.yaml")); err != nil {
		t.Fatalf("expected combat.yaml installed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws2, "presets", "team", "README.txt")); err != nil {
		t.Fatalf("expected readme installed: %v", err)
	}
	// Installed packs must be loadable
	packs, err := ListPacks(ws2)
	if err != nil {
		t.Fatalf("list packs: %v", err)
	}
	if len(packs) != 1 || packs[0].Pack.Name != "Combat Basics" {
		t.Fatalf("unexpected packs after install: %+v", packs)
	}
}

func TestExportPacks_ErrorArgsAndEmptyDir(t *testing.T) {
	if err := ExportPacks("", ""); err == nil {
		t.Fatalf("expected error on empty args")
	}
	ws := t.TempDir()
	zipPath := filepath.Join(ws, "only_manifest.zip")
	// presets dir does not exist; function should create it and still produce a zip with manifest
	if err := ExportPacks(ws, zipPath); err != nil {
		t.Fatalf("export empty presets: %v", err)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer r.Close()
	foundManifest := false
	for _, f := range r.File {
		if f.Name == "presetpack.manifest.txt" {
			foundManifest = true
			break
		}
	}
	if !foundManifest {
		t.Fatalf("manifest not found in zip")
	}
}

func TestInstallPack_SlipSkipExistingAndInvalidYAML(t *testing.T) {
	// Build a zip with a malicious entry, an invalid pack, and a good entry
	ws := t.TempDir()
	zpath := filepath.Join(ws, "pack.zip")
	f, err := os.Create(zpath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	// Malicious entry
	w, err := zw.Create("../evil.txt")
	if err != nil {
		t.Fatalf("create malicious zip entry: %v", err)
	}
	if _, err := w.Write([]byte("nope")); err != nil {
		t.Fatalf("write malicious entry: %v", err)
	}
	// Pack that fails validation (no name)
	w2, err := zw.Create("presets/broken.yaml")
	if err != nil {
		t.Fatalf("create broken zip entry: %v", err)
	}
	if _, err := w2.Write([]byte("groups: []\n")); err != nil {
		t.Fatalf("write broken entry: %v", err)
	}
	// Good entry under presets/, but pre-created in the target workspace
	w3, err := zw.Create("presets/good.yaml")
	if err != nil {
		t.Fatalf("create good zip entry: %v", err)
	}
	if _, err := w3.Write([]byte(combatYAML)); err != nil {
		t.Fatalf("write good entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}

	// Pre-create an existing file to test skip-existing
	target := filepath.Join(ws, "presets", "good.yaml")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("mkdir presets dir: %v", err)
	}
	if err := os.WriteFile(target, []byte(combatYAML), 0o644); err != nil {
		t.Fatalf("precreate file: %v", err)
	}

	installed, err := InstallPackArchive(ws, zpath)
	if err != nil {
		t.Fatalf("install pack: %v", err)
	}
	// Skip existing + invalid + malicious => nothing installed
	if installed != 0 {
		t.Fatalf("expected 0 installed, got %d", installed)
	}
	if _, err := os.Stat(filepath.Join(ws, "evil.txt")); err == nil {
		t.Fatalf("evil.txt should not exist")
	}
	if _, err := os.Stat(filepath.Join(ws, "presets", "broken.yaml")); err == nil {
		t.Fatalf("broken.yaml should not be installed")
	}
}

func TestInstallPackBytes_PrefixesBareEntries(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// Directory entry
	dh := &zip.FileHeader{Name: "presets/team/"}
	dh.SetMode(os.ModeDir | 0o755)
	if _, err := zw.CreateHeader(dh); err != nil {
		t.Fatalf("create dir header: %v", err)
	}
	// Bare entry should be prefixed by installer under presets/
	w, err := zw.Create("cycles.yaml")
	if err != nil {
		t.Fatalf("create bare zip entry: %v", err)
	}
	if _, err := w.Write([]byte(combatYAML)); err != nil {
		t.Fatalf("write bare entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}

	ws := t.TempDir()
	installed, err := InstallPackBytes(ws, buf.Bytes())
	if err != nil {
		t.Fatalf("install bytes: %v", err)
	}
	if installed != 1 { // only the file counts, directory entry doesn't
		t.Fatalf("expected installed=1, got %d", installed)
	}
	if _, err := os.Stat(filepath.Join(ws, "presets", "cycles.yaml")); err != nil {
		t.Fatalf("expected installed file under presets: %v", err)
	}
}
