/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"hkannostudio/internal/presets"
)

const clientPackYAML = `name: Combat Basics
author: Foley Team
groups:
  - name: Swings
    events:
      - text: SoundPlay.WPNSwingUnarmed
        at: 0.2
      - text: SoundPlay.WPNSwingWhoosh
        at: 0.45
`

func buildPackArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("presets/combat.yaml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(clientPackYAML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// newLibraryServer serves the pack endpoints with the production auth and JSON
// helpers over an in-memory fixture, so client tests run without Postgres.
func newLibraryServer(t *testing.T, secret string, archive []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/packs", withAuth(secret, func(w http.ResponseWriter, r *http.Request, sub string) {
		writeJSON(w, http.StatusOK, []map[string]any{{
			"id": 7, "stable_id": "combat-basics", "name": "Combat Basics",
			"author": "Foley Team", "description": "Melee swing and impact events",
			"updated_at": time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC), "version": 3,
		}})
	}))
	mux.HandleFunc("/api/packs/", withAuth(secret, func(w http.ResponseWriter, r *http.Request, sub string) {
		if r.URL.Path != "/api/packs/7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"pack_id": 7, "name": "Combat Basics", "version": 3,
			"updated_at": "2025-08-01T12:00:00Z", "archive": archive,
		})
	}))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientListAndFetchPacks(t *testing.T) {
	archive := buildPackArchive(t)
	ts := newLibraryServer(t, "s3cret", archive)
	tok, err := signToken("s3cret", "studio", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	c := NewClient(ts.URL+"/", tok) // trailing slash is normalized
	ctx := context.Background()

	list, err := c.ListPacks(ctx)
	if err != nil {
		t.Fatalf("ListPacks: %v", err)
	}
	if len(list) != 1 || list[0].ID != 7 || list[0].Name != "Combat Basics" || list[0].Version != 3 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].UpdatedAt.IsZero() {
		t.Fatalf("updated_at not decoded: %+v", list[0])
	}

	env, err := c.FetchPack(ctx, 7)
	if err != nil {
		t.Fatalf("FetchPack: %v", err)
	}
	if env.PackID != 7 || env.Name != "Combat Basics" || env.Version != 3 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if !bytes.Equal(env.Archive, archive) {
		t.Fatalf("archive bytes differ: got %d bytes, want %d", len(env.Archive), len(archive))
	}

	bad := NewClient(ts.URL, "garbage")
	if _, err := bad.ListPacks(ctx); err == nil {
		t.Fatalf("expected auth error for bad token")
	}
}

func TestClientInstallPackIntoWorkspace(t *testing.T) {
	archive := buildPackArchive(t)
	ts := newLibraryServer(t, "s3cret", archive)
	tok, err := signToken("s3cret", "studio", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	c := NewClientWithTimeout(ts.URL, tok, 5*time.Second, false)

	root := t.TempDir()
	n, err := c.InstallPack(context.Background(), 7, root)
	if err != nil {
		t.Fatalf("InstallPack: %v", err)
	}
	if n != 1 {
		t.Fatalf("installed = %d, want 1", n)
	}
	p, err := presets.LoadPack(filepath.Join(root, "presets", "combat.yaml"))
	if err != nil {
		t.Fatalf("LoadPack after install: %v", err)
	}
	if p.Name != "Combat Basics" || len(p.Groups) != 1 || len(p.Groups[0].Events) != 2 {
		t.Fatalf("unexpected pack: %+v", p)
	}
}
