/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package anno

// Hkanno is the root of one annotation document: the metadata reported by the
// native tool plus the ordered annotation tracks. Track order is file order and
// is significant; the text buffer is canonical and the model is re-derived from
// it before every serialize or preview, so Hkanno carries no parse state.

type Hkanno struct {
	Ptr               string // opaque document index token reported by the tool
	NumOriginalFrames int
	Duration          float64 // seconds
	Tracks            []Track
}

// Track is a named (or unnamed) ordered group of timed annotations.
// Name == nil means "no name"; that is distinct from an empty string and is
// written as the sentinel token on serialization. A track with zero
// annotations is valid and preserved.

type Track struct {
	Name        *string
	Annotations []Annotation
}

// Annotation is one (time, optional text) pair within a track.

type Annotation struct {
	Time float64 // seconds
	Text *string // nil = no text, same sentinel rule as Track.Name
}

// Error represents a parse error with position context. The offending line is
// excluded from the model; the surrounding lines are unaffected.

type Error struct {
	Line    int // 1-based line number in the source
	Token   string
	Message string
}

// Sentinel is the reserved control character that stands for "no value" in
// name and text fields on the wire. It is never a valid user string by itself.
const Sentinel = "\x1a"

// DecodeOpt maps a trimmed field value to its optional form: the sentinel
// alone decodes to nil, anything else (including "") to itself.
func DecodeOpt(s string) *string {
	if s == Sentinel {
		return nil
	}
	return &s
}

// EncodeOpt is the inverse of DecodeOpt: nil encodes to the sentinel.
func EncodeOpt(s *string) string {
	if s == nil {
		return Sentinel
	}
	return *s
}

// NumAnnotations returns the total annotation count across all tracks.
func (h Hkanno) NumAnnotations() int {
	n := 0
	for _, t := range h.Tracks {
		n += len(t.Annotations)
	}
	return n
}
