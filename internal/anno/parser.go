/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package anno

import (
	"bufio"
	"strings"
)

// Parse parses annotation text into ordered tracks.
// Supported syntax:
//   - Header: "trackName: <value>" (keyword case-insensitive, any amount of
//     whitespace around the colon) starts a new track; the value goes through
//     the sentinel rule.
//   - Comment: lines whose first non-whitespace char is '#' are skipped,
//     including the informational count markers written by Serialize.
//   - Annotation: "<float> <text>"; annotations before any header collect
//     into one implicit unnamed track.
//   - Blank lines are skipped.
//
// Parse never fails: malformed time heads are reported per line in the
// returned error list and the offending lines are left out of the model.
func Parse(input string) ([]Track, []Error) {
	tracks := []Track{}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	var current *Track

	flushTrack := func() {
		if current != nil {
			tracks = append(tracks, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		l := Classify(scanner.Text())
		switch l.Kind {
		case LineBlank, LineComment:
			continue
		case LineHeader:
			flushTrack()
			current = &Track{Name: l.Name, Annotations: []Annotation{}}
		case LineAnnotation:
			if current == nil {
				// Orphan annotations open one implicit unnamed track.
				current = &Track{Annotations: []Annotation{}}
			}
			current.Annotations = append(current.Annotations, Annotation{Time: l.Time, Text: l.Text})
		case LineInvalid:
			errs = append(errs, Error{Line: lineNo, Token: l.Token, Message: "invalid time value"})
		}
	}
	flushTrack()

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Message: err.Error()})
	}
	return tracks, errs
}
