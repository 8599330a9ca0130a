/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hkannostudio/internal/storage"
)

// ExportBundle packages one clip for sharing: the annotation text exactly as
// stored, the tagfile markup when the caller has one, and a meta.json
// manifest so the receiving side can place the clip without opening the
// workspace. The markup comes from the caller because producing it needs the
// native tool; an empty markup simply omits the entry.
func ExportBundle(wh *storage.WorkspaceHandle, clipID string, markup string, outPath string) error {
	clip, doc, parseErrs, err := resolveDoc(wh, clipID)
	if err != nil {
		return err
	}
	text, err := storage.ReadClipText(wh, clip)
	if err != nil {
		return fmt.Errorf("read clip text: %w", err)
	}

	outPath = resolveOut(wh, outPath)
	if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
		outPath = outPath + ".zip"
	}

	zw, f, err := createZip(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := addZipFile(zw, "anno.txt", []byte(text)); err != nil {
		return fmt.Errorf("zip add annotations: %w", err)
	}
	if markup != "" {
		if err := addZipFile(zw, "markup.xml", []byte(markup)); err != nil {
			return fmt.Errorf("zip add markup: %w", err)
		}
	}

	tracks, annotations := countDoc(doc)
	meta := bundleMeta{
		Workspace:   wh.Workspace.Name,
		Game:        wh.Workspace.Metadata.Game,
		Skeleton:    wh.Workspace.Metadata.Skeleton,
		ClipID:      clip.ID,
		Clip:        clip.DisplayName,
		Path:        clip.Path,
		Format:      clip.Format,
		Frames:      doc.NumOriginalFrames,
		Duration:    doc.Duration,
		Tracks:      tracks,
		Annotations: annotations,
		ParseErrors: len(parseErrs),
		HasMarkup:   markup != "",
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	data, merr := json.MarshalIndent(meta, "", "  ")
	if merr != nil {
		return fmt.Errorf("build manifest: %w", merr)
	}
	if err := addZipFile(zw, "meta.json", data); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

type bundleMeta struct {
	Workspace   string  `json:"workspace"`
	Game        string  `json:"game,omitempty"`
	Skeleton    string  `json:"skeleton,omitempty"`
	ClipID      string  `json:"clipId"`
	Clip        string  `json:"clip"`
	Path        string  `json:"path"`
	Format      string  `json:"format,omitempty"`
	Frames      int     `json:"numOriginalFrames"`
	Duration    float64 `json:"duration"`
	Tracks      int     `json:"tracks"`
	Annotations int     `json:"annotations"`
	ParseErrors int     `json:"parseErrors,omitempty"`
	HasMarkup   bool    `json:"hasMarkup"`
	ExportedAt  string  `json:"exportedAt"`
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	// Ensure directory exists
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create zip: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
