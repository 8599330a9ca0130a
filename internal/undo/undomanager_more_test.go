/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestClearDocumentAndStats(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxPerDocument: 10, MinInterval: time.Millisecond})
	doc := "clip-7"
	m.PushSnapshot(Snapshot{DocumentID: doc, Blob: []byte("abcdef"), TS: time.Now()})
	tb, docs, total := m.Stats()
	if tb == 0 || docs != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: tb=%d docs=%d total=%d", tb, docs, total)
	}
	m.ClearDocument(doc)
	tb2, docs2, total2 := m.Stats()
	if tb2 != 0 || docs2 != 0 || total2 != 0 {
		t.Fatalf("expected cleared stats to be zero, got tb=%d docs=%d total=%d", tb2, docs2, total2)
	}
}

func TestGlobalPruneAcrossDocuments(t *testing.T) {
	// Very small MaxBytes so pruning triggers across documents
	m := NewManager(Config{MaxBytes: 8, MaxPerDocument: 0, MinInterval: time.Millisecond})
	t0 := time.Now()
	// Document a: older snapshot
	m.PushSnapshot(Snapshot{DocumentID: "a", Blob: []byte("xxxx"), TS: t0})
	// Document b: newer snapshot
	m.PushSnapshot(Snapshot{DocumentID: "b", Blob: []byte("yyyy"), TS: t0.Add(time.Second)})

	// Add another snapshot to exceed cap and force prune of the oldest snapshot
	m.PushSnapshot(Snapshot{DocumentID: "b", Blob: []byte("zzzz"), TS: t0.Add(2 * time.Second)})

	// After pruning, the oldest (document a) should be removed
	_, docs, total := m.Stats()
	if docs == 0 || total == 0 {
		t.Fatalf("expected some snapshots to remain")
	}
	// Undo on document a should now be empty
	if _, ok := m.Undo("a", nil); ok {
		t.Fatalf("expected document a to have been pruned")
	}
	// Undo on document b should still work
	if _, ok := m.Undo("b", nil); !ok {
		t.Fatalf("expected document b to have snapshots")
	}
}

func TestUndoRedoWalk(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxPerDocument: 10, MinInterval: time.Millisecond})
	doc := "clip-9"
	t0 := time.Now()
	// History v1 -> v2 -> v3, live state is v3
	m.PushSnapshot(Snapshot{DocumentID: doc, Blob: []byte("v1"), TS: t0})
	m.PushSnapshot(Snapshot{DocumentID: doc, Blob: []byte("v2"), TS: t0.Add(10 * time.Millisecond)})

	steps := []struct {
		redo    bool
		current string
		want    string
	}{
		{false, "v3", "v2"},
		{false, "v2", "v1"},
		{true, "v1", "v2"},
		{true, "v2", "v3"},
	}
	for i, st := range steps {
		var s Snapshot
		var ok bool
		if st.redo {
			s, ok = m.Redo(doc, []byte(st.current))
		} else {
			s, ok = m.Undo(doc, []byte(st.current))
		}
		if !ok || string(s.Blob) != st.want {
			t.Fatalf("step %d: got ok=%v blob=%q want %q", i, ok, string(s.Blob), st.want)
		}
	}
	if _, ok := m.Redo(doc, nil); ok {
		t.Fatalf("expected redo stack to be exhausted")
	}
}
