/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bufio"
	"strconv"
	"strings"

	"hkannostudio/internal/anno"
)

// parseAnnoIndexes extracts the track and annotation ordinals from a search
// index entry path such as "clip:<id>/track:2/anno:7". Both are -1 when the
// path carries no such segment (workspace and clip metadata entries).
func parseAnnoIndexes(path string) (track, annoIdx int) {
	track, annoIdx = -1, -1
	for _, seg := range strings.Split(path, "/") {
		if v, ok := strings.CutPrefix(seg, "track:"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				track = n
			}
		}
		if v, ok := strings.CutPrefix(seg, "anno:"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				annoIdx = n
			}
		}
	}
	return track, annoIdx
}

// annotationLine finds the 1-based source line of the annoIdx-th annotation
// within the trackIdx-th track of the given text. Annotations before the
// first header count as track 0, matching the parser. Returns 0 on a miss.
func annotationLine(text string, trackIdx, annoIdx int) int {
	if trackIdx < 0 || annoIdx < 0 {
		return 0
	}
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	tracks := 0
	n := 0
	for sc.Scan() {
		lineNo++
		ln := anno.Classify(sc.Text())
		switch ln.Kind {
		case anno.LineHeader:
			tracks++
			n = 0
		case anno.LineAnnotation:
			if tracks == 0 {
				tracks = 1 // orphan annotations open an implicit first track
			}
			if tracks-1 == trackIdx && n == annoIdx {
				return lineNo
			}
			n++
		}
	}
	return 0
}
