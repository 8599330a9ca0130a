/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the workspace model: the manifest that groups the
// animation clips a user is annotating. It serializes to a human-readable
// JSON manifest (workspace.json) at the workspace root. The annotation data
// itself lives inside the .hkx files; the workspace only tracks which files
// belong together and how to display them.

// Workspace represents an annotation workspace and its metadata.
type Workspace struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata,omitempty"`
	Clips    []Clip   `json:"clips"`
}

// Metadata contains optional descriptive metadata for a workspace.
type Metadata struct {
	Game     string `json:"game,omitempty"`
	Skeleton string `json:"skeleton,omitempty"`
	Author   string `json:"author,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Clip is one animation file tracked by the workspace. Path is relative to
// the workspace root so the directory stays relocatable.
type Clip struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Path        string   `json:"path"`
	Format      string   `json:"format,omitempty"` // win32, amd64, xml
	Tags        []string `json:"tags,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// FindClip returns the clip with the given id, or nil.
func (w *Workspace) FindClip(id string) *Clip {
	for i := range w.Clips {
		if w.Clips[i].ID == id {
			return &w.Clips[i]
		}
	}
	return nil
}

// ClipByPath returns the clip with the given workspace-relative path, or nil.
func (w *Workspace) ClipByPath(path string) *Clip {
	for i := range w.Clips {
		if w.Clips[i].Path == path {
			return &w.Clips[i]
		}
	}
	return nil
}
