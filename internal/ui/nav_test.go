/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import "testing"

func TestParseAnnoIndexes(t *testing.T) {
	cases := []struct {
		path       string
		track, idx int
	}{
		{"clip:abc/track:2/anno:7", 2, 7},
		{"clip:abc/track:0/anno:0", 0, 0},
		{"clip:abc", -1, -1},
		{"workspace", -1, -1},
		{"clip:abc/track:x/anno:3", -1, 3},
		{"", -1, -1},
	}
	for _, c := range cases {
		tr, ai := parseAnnoIndexes(c.path)
		if tr != c.track || ai != c.idx {
			t.Errorf("parseAnnoIndexes(%q) = (%d, %d), want (%d, %d)", c.path, tr, ai, c.track, c.idx)
		}
	}
}

func TestAnnotationLine(t *testing.T) {
	text := "# comment\n" + // line 1
		"# duration: 2.0\n" + // line 2
		"trackName: Walk\n" + // line 3 (track 0)
		"0.100 footL\n" + // line 4 (track 0, anno 0)
		"0.500 footR\n" + // line 5 (track 0, anno 1)
		"trackName: Run\n" + // line 6 (track 1)
		"0.050 footL\n" // line 7 (track 1, anno 0)

	cases := []struct {
		track, idx int
		want       int
	}{
		{0, 0, 4},
		{0, 1, 5},
		{1, 0, 7},
		{1, 1, 0}, // past the end of the second track
		{2, 0, 0}, // no such track
		{-1, 0, 0},
	}
	for _, c := range cases {
		if got := annotationLine(text, c.track, c.idx); got != c.want {
			t.Errorf("annotationLine(track=%d, anno=%d) = %d, want %d", c.track, c.idx, got, c.want)
		}
	}
}

func TestAnnotationLineOrphans(t *testing.T) {
	// Annotations before the first header belong to an implicit track 0.
	text := "0.100 start\n" +
		"0.900 end\n" +
		"trackName: Second\n" +
		"0.200 hit\n"

	if got := annotationLine(text, 0, 1); got != 2 {
		t.Fatalf("orphan anno 1: got line %d, want 2", got)
	}
	if got := annotationLine(text, 1, 0); got != 4 {
		t.Fatalf("second track anno 0: got line %d, want 4", got)
	}
}
