/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package timeline computes a deterministic 2D layout of an annotation
// document over its clip duration: a time ruler, one lane per track, a marker
// per annotation, and label placement with collision nudging. The layout is
// resolution-independent and fully resolved, so exporters only draw.
package timeline

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"hkannostudio/internal/anno"
)

// Options controls the layout. All units are pixels at 1x scale.
// The algorithm is deterministic for identical inputs.
//
// MeasureText maps a label to its rendered width; the default assumes the
// 7px-advance bitmap face the PNG exporter draws with. Renderers with other
// font metrics can inject their own measure.
type Options struct {
	Width       float32
	LeftGutter  float32 // lane name column
	RowHeight   float32 // label row height
	MarkerSize  float32
	LabelGap    float32 // minimum horizontal clearance between labels in a row
	LaneGap     float32
	MaxRows     int // label rows per lane before reuse of the last row
	MeasureText func(string) float32
}

// Tick is one ruler mark with its formatted time label.
type Tick struct {
	Time  float64
	X     float32
	Label string
}

// Marker is one annotation placed on a lane axis. Label is the display text
// after eliding, positioned at (LabelX, LabelY); Row is the nudge row it was
// assigned to. Text keeps the full annotation text.
type Marker struct {
	Time   float64
	Text   string
	Label  string
	X      float32
	Y      float32
	Row    int
	LabelX float32
	LabelY float32
	LabelW float32
}

// Lane is one annotation track: a horizontal axis with markers above it.
type Lane struct {
	Name    string // "" for the unnamed track
	Y       float32
	Height  float32
	AxisY   float32
	Rows    int
	Markers []Marker
}

// Layout is the fully resolved drawing plan.
type Layout struct {
	Width    float32
	Height   float32
	Duration float64
	RulerY   float32
	Ticks    []Tick
	Lanes    []Lane
}

const rightPad = 16

// Build lays out the document. A non-positive duration falls back to the
// latest annotation time so tool-less documents still render.
func Build(h anno.Hkanno, opts Options) Layout {
	// defaults
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.LeftGutter <= 0 {
		opts.LeftGutter = 140
	}
	if opts.RowHeight <= 0 {
		opts.RowHeight = 14
	}
	if opts.MarkerSize <= 0 {
		opts.MarkerSize = 6
	}
	if opts.LabelGap <= 0 {
		opts.LabelGap = 6
	}
	if opts.LaneGap <= 0 {
		opts.LaneGap = 10
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = 4
	}
	if opts.MeasureText == nil {
		opts.MeasureText = DefaultMeasure
	}

	duration := h.Duration
	if duration <= 0 {
		duration = latestTime(h)
	}
	if duration <= 0 {
		duration = 1
	}

	out := Layout{
		Width:    opts.Width,
		Duration: duration,
		RulerY:   28,
	}

	plotW := opts.Width - opts.LeftGutter - rightPad
	if plotW < 1 {
		plotW = 1
	}
	xAt := func(t float64) float32 {
		if t < 0 {
			t = 0
		}
		if t > duration {
			t = duration
		}
		return round2(opts.LeftGutter + float32(t/duration)*plotW)
	}

	out.Ticks = buildTicks(duration, plotW, xAt)

	y := out.RulerY + 16
	for _, tr := range h.Tracks {
		lane := buildLane(tr, xAt, opts)
		lane.Y = y
		lane.AxisY = y + float32(lane.Rows)*opts.RowHeight + opts.MarkerSize
		lane.Height = lane.AxisY - y + opts.MarkerSize + opts.LaneGap
		for i := range lane.Markers {
			m := &lane.Markers[i]
			m.Y = lane.AxisY
			m.LabelY = lane.AxisY - opts.MarkerSize - 2 - float32(m.Row)*opts.RowHeight
		}
		y += lane.Height
		out.Lanes = append(out.Lanes, lane)
	}
	out.Height = y + 8
	return out
}

// buildLane assigns markers and nudges their labels into rows. Markers are
// scanned in ascending x; each label takes the first row where it clears the
// previous label, and when every row is occupied it falls back to the row
// that frees up earliest, the least-overlapping candidate.
func buildLane(tr anno.Track, xAt func(float64) float32, opts Options) Lane {
	lane := Lane{}
	if tr.Name != nil {
		lane.Name = *tr.Name
	}
	lane.Markers = make([]Marker, len(tr.Annotations))
	for i, a := range tr.Annotations {
		m := Marker{Time: a.Time, X: xAt(a.Time)}
		if a.Text != nil {
			m.Text = *a.Text
		}
		lane.Markers[i] = m
	}

	// Row assignment in x order; ties keep annotation order (stable sort).
	order := make([]int, len(lane.Markers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return lane.Markers[order[a]].X < lane.Markers[order[b]].X })

	maxLabelW := (opts.Width - opts.LeftGutter - rightPad) / 2
	rowEnd := make([]float32, opts.MaxRows)
	for i := range rowEnd {
		rowEnd[i] = -1e9
	}
	used := 0
	for _, idx := range order {
		m := &lane.Markers[idx]
		if m.Text == "" {
			continue
		}
		m.Label, m.LabelW = elide(m.Text, maxLabelW, opts.MeasureText)
		m.LabelX = m.X + opts.MarkerSize
		if m.LabelX+m.LabelW > opts.Width-rightPad {
			m.LabelX = opts.Width - rightPad - m.LabelW
		}

		row := -1
		for r := 0; r < opts.MaxRows; r++ {
			if rowEnd[r]+opts.LabelGap <= m.LabelX {
				row = r
				break
			}
		}
		if row < 0 {
			row = 0
			for r := 1; r < opts.MaxRows; r++ {
				if rowEnd[r] < rowEnd[row] {
					row = r
				}
			}
		}
		m.Row = row
		rowEnd[row] = m.LabelX + m.LabelW
		if row+1 > used {
			used = row + 1
		}
	}
	if used == 0 {
		used = 1
	}
	lane.Rows = used
	return lane
}

// buildTicks picks a step from a fixed ladder so labels sit roughly 80px
// apart, then walks the axis clamping the final tick to the exact duration.
func buildTicks(duration float64, plotW float32, xAt func(float64) float32) []Tick {
	raw := duration * 80 / float64(plotW)
	step := tickSteps[len(tickSteps)-1]
	for _, s := range tickSteps {
		if s >= raw {
			step = s
			break
		}
	}
	decimals := 2
	if step >= 1 {
		decimals = 0
	}

	var ticks []Tick
	for i := 0; ; i++ {
		t := float64(i) * step
		if t > duration {
			t = duration
		}
		ticks = append(ticks, Tick{
			Time:  t,
			X:     xAt(t),
			Label: fmt.Sprintf("%.*f", decimals, t),
		})
		if t == duration {
			break
		}
	}
	return ticks
}

var tickSteps = []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30, 60}

// DefaultMeasure estimates label width for the 7px-advance bitmap face.
func DefaultMeasure(s string) float32 {
	return float32(7 * utf8.RuneCountInString(s))
}

// elide trims the label with a trailing ellipsis until it fits maxW.
func elide(s string, maxW float32, measure func(string) float32) (string, float32) {
	w := measure(s)
	if w <= maxW {
		return s, w
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if w = measure(candidate); w <= maxW {
			return candidate, w
		}
	}
	return "…", measure("…")
}

func latestTime(h anno.Hkanno) float64 {
	var latest float64
	for _, tr := range h.Tracks {
		for _, a := range tr.Annotations {
			if a.Time > latest {
				latest = a.Time
			}
		}
	}
	return latest
}

func round2(v float32) float32 {
	return float32(math.Round(float64(v)*100) / 100)
}
