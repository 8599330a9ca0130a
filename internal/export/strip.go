/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"hkannostudio/internal/storage"
	"hkannostudio/internal/textlayout"
	"hkannostudio/internal/timeline"
)

// StripOptions controls the timeline strip exports (PNG and SVG).
// Zero values fall back to the layout defaults.
//
//nolint:revive // clarity
type StripOptions struct {
	Width   int
	MaxRows int
}

var (
	stripAxis   = color.RGBA{180, 180, 180, 255}
	stripRuler  = color.RGBA{60, 60, 60, 255}
	stripMarker = color.RGBA{30, 60, 160, 255}
	stripText   = color.RGBA{0, 0, 0, 255}
)

// ExportTimelinePNG renders the clip's annotation timeline as a raster strip:
// a time ruler, one lane per track, a marker per annotation with its nudged
// label. The strip face keeps the output deterministic across platforms.
func ExportTimelinePNG(wh *storage.WorkspaceHandle, clipID string, outPath string, opt StripOptions) error {
	_, doc, _, err := resolveDoc(wh, clipID)
	if err != nil {
		return err
	}
	l := timeline.Build(doc, timeline.Options{
		Width:       float32(opt.Width),
		MaxRows:     opt.MaxRows,
		MeasureText: textlayout.FaceMeasurer(textlayout.StripFace()),
	})

	pixW := int(math.Ceil(float64(l.Width)))
	pixH := int(math.Ceil(float64(l.Height)))
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	// Background white
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	// Ruler with ticks
	ry := int(l.RulerY)
	fillRect(img, int(l.Ticks[0].X), ry, int(l.Ticks[len(l.Ticks)-1].X), ry, stripRuler)
	for _, tk := range l.Ticks {
		x := int(tk.X)
		fillRect(img, x, ry-4, x, ry, stripRuler)
		drawString(img, x+2, ry-6, tk.Label, stripRuler)
	}

	for _, lane := range l.Lanes {
		ay := int(lane.AxisY)
		drawString(img, 8, ay, laneName(lane), stripText)
		fillRect(img, int(l.Ticks[0].X), ay, int(l.Ticks[len(l.Ticks)-1].X), ay, stripAxis)
		for _, m := range lane.Markers {
			x := int(m.X)
			fillRect(img, x-3, ay-3, x+3, ay+3, stripMarker)
			if m.Label != "" {
				drawString(img, int(m.LabelX), int(m.LabelY), m.Label, stripText)
			}
		}
	}

	outPath = resolveOut(wh, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func laneName(lane timeline.Lane) string {
	if lane.Name == "" {
		return "(unnamed)"
	}
	return lane.Name
}

// fillRect paints an axis-aligned rectangle inclusive of endpoints; a zero
// width or height degenerates to a 1px line.
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// drawString renders s with the strip face, baseline at (x, y). Drawing and
// layout share the face, so labels land where the layout measured them.
func drawString(img *image.RGBA, x, y int, s string, col color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: textlayout.StripFace(),
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
