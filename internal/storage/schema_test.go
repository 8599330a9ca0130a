/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"testing"

	"hkannostudio/internal/domain"
)

func TestManifestConformsToSchema(t *testing.T) {
	root := t.TempDir()
	wh, err := InitWorkspace(root, defaultMinimalWorkspace())
	if err != nil {
		t.Fatalf("InitWorkspace error: %v", err)
	}

	// Load manifest bytes and validate against the embedded schema
	data, err := os.ReadFile(wh.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := ValidateManifest(data); err != nil {
		t.Fatalf("manifest does not conform to schema: %v", err)
	}
}

func TestValidateManifestRejectsMissingName(t *testing.T) {
	bad := []byte(`{"clips": []}`)
	if err := ValidateManifest(bad); err == nil {
		t.Fatalf("expected schema violation for missing name")
	}
}

func TestValidateManifestAcceptsPopulatedClips(t *testing.T) {
	doc := []byte(`{
		"name": "Combat Pack",
		"metadata": {"game": "Skyrim SE", "skeleton": "character"},
		"clips": [
			{"id": "2f1c", "displayName": "Swing", "path": "clips/swing.hkx", "format": "amd64", "tags": ["attack"]}
		]
	}`)
	if err := ValidateManifest(doc); err != nil {
		t.Fatalf("expected valid manifest, got %v", err)
	}
}

// defaultMinimalWorkspace returns a minimal workspace for schema compliance
func defaultMinimalWorkspace() domain.Workspace {
	return domain.Workspace{Name: "Schema Test", Clips: []domain.Clip{}}
}
