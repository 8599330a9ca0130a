/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout isolates text measurement behind deterministic helpers
// so layout decisions (label fit, wrapping, eliding) do not depend on
// whatever fonts the host platform ships. Renderers hand their own measure
// to the layout code; the strip exporters measure with the same bitmap face
// they draw with.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Measurer reports the rendered advance width of s, in whatever unit the
// renderer draws in (strip pixels, PDF points).
type Measurer func(s string) float32

// FaceMeasurer measures through the same font.Face the renderer paints
// with, so measured and painted widths cannot drift apart.
func FaceMeasurer(face font.Face) Measurer {
	d := &font.Drawer{Face: face}
	return func(s string) float32 {
		return float32(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
	}
}

// StripFace is the bitmap face the timeline strip exports draw and measure
// with. A bitmap face keeps strip output identical across platforms.
func StripFace() font.Face { return basicfont.Face7x13 }

// Wrap greedily breaks s into lines no wider than maxW. Breaks happen at
// spaces, '\n' forces a break, and a single word wider than maxW gets a
// line of its own and overflows. Runs of spaces collapse to one. The result
// always has at least one line; maxW <= 0 only honors the hard breaks.
func Wrap(s string, maxW float32, m Measurer) []string {
	if maxW <= 0 || m == nil {
		return strings.Split(s, "\n")
	}
	var lines []string
	cur := ""
	curW := float32(0)
	flush := func() {
		lines = append(lines, cur)
		cur = ""
		curW = 0
	}
	spaceW := m(" ")
	for i, hard := range strings.Split(s, "\n") {
		if i > 0 {
			flush()
		}
		for _, word := range strings.Fields(hard) {
			w := m(word)
			if cur == "" {
				cur, curW = word, w
				continue
			}
			if curW+spaceW+w > maxW {
				flush()
				cur, curW = word, w
				continue
			}
			cur += " " + word
			curW += spaceW + w
		}
	}
	if cur != "" || len(lines) == 0 {
		flush()
	}
	return lines
}

// ElideRunes shortens s to at most max runes, marking the cut with an
// ellipsis. Rune-based so multibyte text is never split mid-character.
func ElideRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
