/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package correlate pairs lines of the editable annotation text with lines of
// the markup view generated from the same document. The pairing is purely
// positional: the k-th header (or annotation) line on one side maps to the
// k-th on the other, which holds because both texts are derived from the same
// model in the same order. Documents are small, so every rebuild is a full
// two-text scan.
package correlate

import (
	"bufio"
	"strings"

	"hkannostudio/internal/anno"
)

// Maps holds the two line maps (1-based primary line -> 1-based secondary
// line) plus the raw per-category occurrence counts on both sides. When the
// counts of a category differ, the surplus occurrences are unmapped; callers
// that want to be strict can check Diverged instead of trusting the pairing.

type Maps struct {
	Headers     map[int]int
	Annotations map[int]int
	Counts      Counts
}

// Counts are the per-category occurrence totals seen during the scan.

type Counts struct {
	PrimaryHeaders       int
	SecondaryHeaders     int
	PrimaryAnnotations   int
	SecondaryAnnotations int
}

// Build scans both texts top to bottom and pairs occurrences by index.
// Primary lines are classified with the same classifier the parser uses;
// secondary lines are matched on their field tags. Header-shaped and
// time-shaped lines are collected per category in encounter order, then the
// k-th primary occurrence is mapped to the k-th secondary occurrence up to
// the smaller count. Content is never compared.
func Build(primary, secondary string) Maps {
	var pHeaders, pTimes []int
	scanLines(primary, func(n int, line string) {
		switch anno.Classify(line).Kind {
		case anno.LineHeader:
			pHeaders = append(pHeaders, n)
		case anno.LineAnnotation:
			pTimes = append(pTimes, n)
		}
	})

	var sHeaders, sTimes []int
	scanLines(secondary, func(n int, line string) {
		switch {
		case isTrackNameTag(line):
			sHeaders = append(sHeaders, n)
		case isTimeTag(line):
			sTimes = append(sTimes, n)
		}
	})

	return Maps{
		Headers:     pairByIndex(pHeaders, sHeaders),
		Annotations: pairByIndex(pTimes, sTimes),
		Counts: Counts{
			PrimaryHeaders:       len(pHeaders),
			SecondaryHeaders:     len(sHeaders),
			PrimaryAnnotations:   len(pTimes),
			SecondaryAnnotations: len(sTimes),
		},
	}
}

// Diverged reports whether either category has different occurrence counts on
// the two sides. That only happens when the markup generator emitted tags out
// of step with the model, so positional pairing can no longer be trusted.
func (m Maps) Diverged() bool {
	return m.Counts.PrimaryHeaders != m.Counts.SecondaryHeaders ||
		m.Counts.PrimaryAnnotations != m.Counts.SecondaryAnnotations
}

// LookupHeader resolves a primary header line to its secondary line.
func (m Maps) LookupHeader(line int) (int, bool) {
	target, ok := m.Headers[line]
	return target, ok
}

// LookupAnnotation resolves a primary annotation line to its secondary line.
func (m Maps) LookupAnnotation(line int) (int, bool) {
	target, ok := m.Annotations[line]
	return target, ok
}

func scanLines(text string, fn func(n int, line string)) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	n := 0
	for scanner.Scan() {
		n++
		fn(n, scanner.Text())
	}
}

func pairByIndex(primary, secondary []int) map[int]int {
	n := len(primary)
	if len(secondary) < n {
		n = len(secondary)
	}
	m := make(map[int]int, n)
	for k := 0; k < n; k++ {
		m[primary[k]] = secondary[k]
	}
	return m
}

// Markup side predicates. The markup schema is owned by the native tool; the
// only contract here is that track names and times are tagged fields emitted
// in model order, e.g. <hkparam name="trackName">...</hkparam>.
func isTrackNameTag(line string) bool { return strings.Contains(line, `name="trackName"`) }
func isTimeTag(line string) bool      { return strings.Contains(line, `name="time"`) }
