/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"hkannostudio/internal/domain"
)

// ClipTextSuffix is appended to a clip's base path (extension stripped) for the
// sidecar file mirroring the current annotation text. The animation file itself
// stays canonical; the mirror exists so annotations remain diffable and
// greppable without the native tool.
const ClipTextSuffix = ".anno.txt"

// ClipFilePath returns the absolute path of the clip's animation file.
// Returns "" for a nil handle.
func ClipFilePath(wh *WorkspaceHandle, c domain.Clip) string {
	if wh == nil {
		return ""
	}
	return filepath.Join(wh.Root, filepath.FromSlash(c.Path))
}

// ClipTextPath returns the absolute path of the clip's annotation text mirror.
// Returns "" for a nil handle.
func ClipTextPath(wh *WorkspaceHandle, c domain.Clip) string {
	if wh == nil {
		return ""
	}
	rel := c.Path
	if ext := filepath.Ext(rel); ext != "" {
		rel = rel[:len(rel)-len(ext)]
	}
	return filepath.Join(wh.Root, filepath.FromSlash(rel)+ClipTextSuffix)
}

// ReadClipText returns the annotation text mirror for a clip, or "" if the
// mirror does not exist yet.
func ReadClipText(wh *WorkspaceHandle, c domain.Clip) (string, error) {
	p := ClipTextPath(wh, c)
	if p == "" {
		return "", fmt.Errorf("workspace handle is nil")
	}
	b, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read clip text: %w", err)
	}
	return string(b), nil
}

// WriteClipText writes the annotation text mirror for a clip, creating parent
// directories as needed. The write is flushed to disk before returning.
func WriteClipText(wh *WorkspaceHandle, c domain.Clip, text string) error {
	p := ClipTextPath(wh, c)
	if p == "" {
		return fmt.Errorf("workspace handle is nil")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("ensure clip dir: %w", err)
	}
	if err := writeFileSync(p, []byte(text)); err != nil {
		return fmt.Errorf("write clip text: %w", err)
	}
	return nil
}

// AddClip registers a new clip in the manifest. relPath is slash-separated and
// relative to the workspace root (usually under clips/). A fresh ID is
// generated when clip identity is needed for snapshots and previews.
// Returns an error if the path is already tracked.
func AddClip(wh *WorkspaceHandle, displayName, relPath, format string) (domain.Clip, error) {
	if wh == nil {
		return domain.Clip{}, fmt.Errorf("workspace handle is nil")
	}
	relPath = strings.TrimSpace(relPath)
	if relPath == "" {
		return domain.Clip{}, fmt.Errorf("clip path is empty")
	}
	relPath = filepath.ToSlash(relPath)
	if existing := wh.Workspace.ClipByPath(relPath); existing != nil {
		return domain.Clip{}, fmt.Errorf("clip path %s already tracked as %q", relPath, existing.DisplayName)
	}
	if strings.TrimSpace(displayName) == "" {
		base := relPath
		if i := strings.LastIndex(base, "/"); i >= 0 {
			base = base[i+1:]
		}
		displayName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	c := domain.Clip{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Path:        relPath,
		Format:      format,
	}
	wh.Workspace.Clips = append(wh.Workspace.Clips, c)
	return c, nil
}

// RemoveClip drops the clip with the given id from the manifest. The files on
// disk are left alone. Returns an error when the id is unknown.
func RemoveClip(wh *WorkspaceHandle, id string) error {
	if wh == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	for i := range wh.Workspace.Clips {
		if wh.Workspace.Clips[i].ID == id {
			wh.Workspace.Clips = append(wh.Workspace.Clips[:i], wh.Workspace.Clips[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("clip %s not found", id)
}

// MoveClip moves the clip up or down in the manifest order by delta
// (+1 towards the end, -1 towards the front). Moves past either end clamp.
func MoveClip(wh *WorkspaceHandle, id string, delta int) error {
	if wh == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	clips := wh.Workspace.Clips
	idx := -1
	for i := range clips {
		if clips[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("clip %s not found", id)
	}
	newIdx := idx + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(clips) {
		newIdx = len(clips) - 1
	}
	if newIdx == idx {
		return nil
	}
	c := clips[idx]
	if newIdx < idx {
		copy(clips[newIdx+1:idx+1], clips[newIdx:idx])
		clips[newIdx] = c
	} else {
		copy(clips[idx:newIdx], clips[idx+1:newIdx+1])
		clips[newIdx] = c
	}
	return nil
}

// UpdateClipMeta updates a clip's display name (if non-empty and unique) and notes.
// ID, path and tags are preserved.
func UpdateClipMeta(wh *WorkspaceHandle, id string, newDisplayName, notes string) error {
	if wh == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	c := wh.Workspace.FindClip(id)
	if c == nil {
		return fmt.Errorf("clip %s not found", id)
	}
	if newDisplayName != "" && newDisplayName != c.DisplayName {
		for i := range wh.Workspace.Clips {
			if wh.Workspace.Clips[i].ID != id && wh.Workspace.Clips[i].DisplayName == newDisplayName {
				return fmt.Errorf("display name %q already in use", newDisplayName)
			}
		}
		c.DisplayName = newDisplayName
	}
	c.Notes = notes
	return nil
}

// UntrackedClipFiles scans the clips folder for animation files that are not
// referenced by the manifest and returns their workspace-relative
// slash-separated paths, sorted. Useful for an "import found clips" flow.
func UntrackedClipFiles(wh *WorkspaceHandle) ([]string, error) {
	if wh == nil {
		return nil, fmt.Errorf("workspace handle is nil")
	}
	dir := filepath.Join(wh.Root, ClipsDirName)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.hkx")
	if err != nil {
		return nil, fmt.Errorf("scan clips dir: %w", err)
	}
	tracked := make(map[string]struct{}, len(wh.Workspace.Clips))
	for _, c := range wh.Workspace.Clips {
		tracked[c.Path] = struct{}{}
	}
	var out []string
	for _, m := range matches {
		rel := ClipsDirName + "/" + filepath.ToSlash(m)
		if _, ok := tracked[rel]; !ok {
			out = append(out, rel)
		}
	}
	sort.Strings(out)
	return out, nil
}
