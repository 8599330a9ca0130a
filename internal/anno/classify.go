/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package anno

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// LineKind is the exhaustive classification of one source line. Parser and
// correlator both go through Classify, so the two can never disagree about
// what a line is.

type LineKind int

const (
	LineBlank LineKind = iota
	LineComment
	LineHeader
	LineAnnotation
	LineInvalid
)

// Line is the classified form of one source line. Which fields are set
// depends on Kind: Name for LineHeader, Time/Text for LineAnnotation, Token
// for LineInvalid. Name and Text are sentinel-decoded (nil = no value).

type Line struct {
	Kind  LineKind
	Name  *string
	Time  float64
	Text  *string
	Token string
}

// Header keyword, case-insensitive, arbitrary whitespace before and after the
// colon. The value is everything after the colon, trimmed.
var reHeader = regexp.MustCompile(`^(?i)trackname\s*:\s*(.*)$`)

// Classify maps a raw source line to its LineKind:
//   - blank (only whitespace)
//   - comment (first non-whitespace char is '#')
//   - header ("trackName : value", keyword case-insensitive)
//   - annotation ("<float> <text>", split at the first whitespace run; the
//     text tail keeps interior whitespace verbatim)
//   - invalid (non-blank, non-comment, non-header, head not a float)
func Classify(line string) Line {
	trim := strings.TrimSpace(line)
	if trim == "" {
		return Line{Kind: LineBlank}
	}
	if strings.HasPrefix(trim, "#") {
		return Line{Kind: LineComment}
	}
	if m := reHeader.FindStringSubmatch(trim); m != nil {
		return Line{Kind: LineHeader, Name: DecodeOpt(strings.TrimSpace(m[1]))}
	}

	// Annotation line: numeric head, then the first whitespace run, then the
	// text tail. Whitespace inside the tail is data and stays as written.
	head := trim
	tail := ""
	if i := strings.IndexFunc(trim, unicode.IsSpace); i >= 0 {
		head = trim[:i]
		tail = strings.TrimLeftFunc(trim[i:], unicode.IsSpace)
	}
	t, err := strconv.ParseFloat(head, 64)
	if err != nil {
		return Line{Kind: LineInvalid, Token: head}
	}
	return Line{Kind: LineAnnotation, Time: t, Text: DecodeOpt(tail)}
}
