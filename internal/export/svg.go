/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"hkannostudio/internal/storage"
	"hkannostudio/internal/textlayout"
	"hkannostudio/internal/timeline"
)

// ExportTimelineSVG renders the clip's annotation timeline as a vector strip
// with the same geometry as the PNG export. The layout measures with the
// strip face; the viewer's monospace font is a hint only, so wider faces
// may touch.
func ExportTimelineSVG(wh *storage.WorkspaceHandle, clipID string, outPath string, opt StripOptions) error {
	_, doc, _, err := resolveDoc(wh, clipID)
	if err != nil {
		return err
	}
	l := timeline.Build(doc, timeline.Options{
		Width:       float32(opt.Width),
		MaxRows:     opt.MaxRows,
		MeasureText: textlayout.FaceMeasurer(textlayout.StripFace()),
	})

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%gpx\" height=\"%gpx\" viewBox=\"0 0 %g %g\">\n", l.Width, l.Height, l.Width, l.Height)
	// Background white
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", l.Width, l.Height)
	wf("  <g font-family=\"monospace\" font-size=\"12\">\n")

	plotX0 := l.Ticks[0].X
	plotX1 := l.Ticks[len(l.Ticks)-1].X

	// Ruler with ticks
	wf("  <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"#3c3c3c\"/>\n", plotX0, l.RulerY, plotX1, l.RulerY)
	for _, tk := range l.Ticks {
		wf("  <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"#3c3c3c\"/>\n", tk.X, l.RulerY-4, tk.X, l.RulerY)
		wf("  <text x=\"%g\" y=\"%g\" fill=\"#3c3c3c\">%s</text>\n", tk.X+2, l.RulerY-6, escText(tk.Label))
	}

	for _, lane := range l.Lanes {
		wf("  <text x=\"8\" y=\"%g\" fill=\"#000\">%s</text>\n", lane.AxisY, escText(laneName(lane)))
		wf("  <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"#b4b4b4\"/>\n", plotX0, lane.AxisY, plotX1, lane.AxisY)
		for _, m := range lane.Markers {
			wf("  <rect x=\"%g\" y=\"%g\" width=\"6\" height=\"6\" fill=\"#1e3ca0\"/>\n", m.X-3, m.Y-3)
			if m.Label != "" {
				wf("  <text x=\"%g\" y=\"%g\" fill=\"#000\">%s</text>\n", m.LabelX, m.LabelY, escText(m.Label))
			}
		}
	}

	wf("  </g>\n")
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}

	outPath = resolveOut(wh, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
