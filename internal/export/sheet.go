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
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"hkannostudio/internal/anno"
	"hkannostudio/internal/domain"
	"hkannostudio/internal/storage"
	"hkannostudio/internal/textlayout"
)

// SheetOptions controls the timing sheet export.
// Units are points (pt); pages are A4 portrait.
//
//nolint:revive // keep options grouped and explicit for clarity
type SheetOptions struct {
	Title       string // overrides the clip display name in the heading
	IncludeMeta bool   // frames/duration/count block under the heading
}

const (
	sheetPageW  = 595 // A4 in pt (8.27in*72)
	sheetPageH  = 842 // 11.69in*72
	sheetMargin = 48
)

// ExportTimingSheetPDF writes one clip's annotations as a timing sheet: a
// heading with the clip metadata, then per track a table of times and event
// texts; long texts wrap within the text column. Vector text only, built-in
// fonts for portability.
func ExportTimingSheetPDF(wh *storage.WorkspaceHandle, clipID string, outPath string, opt SheetOptions) error {
	clip, doc, parseErrs, err := resolveDoc(wh, clipID)
	if err != nil {
		return err
	}

	title := opt.Title
	if title == "" {
		title = clip.DisplayName
	}
	if title == "" {
		title = clip.Path
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: sheetPageW, Ht: sheetPageH},
		OrientationStr: "",
	})
	pdf.SetTitle(fmt.Sprintf("%s — timing sheet", title), false)
	pdf.SetAuthor("Hkanno Studio", false)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: sheetPageW, Ht: sheetPageH})

	y := float64(sheetMargin)
	newPage := func() {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: sheetPageW, Ht: sheetPageH})
		y = sheetMargin
	}
	ensure := func(need float64) {
		if y+need > sheetPageH-sheetMargin {
			newPage()
		}
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(sheetMargin, y, title)
	y += 22

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.Text(sheetMargin, y, clip.Path)
	y += 14

	if opt.IncludeMeta {
		tracks, annotations := countDoc(doc)
		meta := fmt.Sprintf("duration %.6f s   ·   %d original frames   ·   %d tracks   ·   %d annotations",
			doc.Duration, doc.NumOriginalFrames, tracks, annotations)
		pdf.Text(sheetMargin, y, meta)
		y += 14
	}
	if len(parseErrs) > 0 {
		pdf.SetTextColor(180, 30, 30)
		pdf.Text(sheetMargin, y, fmt.Sprintf("%d line(s) could not be parsed and are not listed", len(parseErrs)))
		y += 14
	}
	pdf.SetTextColor(0, 0, 0)
	y += 10

	timeColW := 80.0
	textColW := float32(sheetPageW-2*sheetMargin) - float32(timeColW)
	measure := func(s string) float32 { return float32(pdf.GetStringWidth(s)) }
	for _, tr := range doc.Tracks {
		ensure(44)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Text(sheetMargin, y, trackHeading(tr))
		y += 6
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(0.6)
		pdf.Line(sheetMargin, y, sheetPageW-sheetMargin, y)
		y += 16

		for _, a := range tr.Annotations {
			ensure(14)
			pdf.SetFont("Courier", "", 10)
			pdf.Text(sheetMargin, y, fmt.Sprintf("%10.6f", a.Time))
			pdf.SetFont("Helvetica", "", 10)
			text := anno.EncodeOpt(a.Text)
			if text == "" {
				pdf.SetTextColor(150, 150, 150)
				pdf.Text(sheetMargin+timeColW, y, "(no text)")
				pdf.SetTextColor(0, 0, 0)
				y += 14
				continue
			}
			// measure uses the Helvetica set just above.
			for i, line := range textlayout.Wrap(text, textColW, measure) {
				if i > 0 {
					ensure(14)
				}
				pdf.Text(sheetMargin+timeColW, y, line)
				y += 14
			}
		}
		if len(tr.Annotations) == 0 {
			ensure(14)
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(150, 150, 150)
			pdf.Text(sheetMargin, y, "(empty track)")
			pdf.SetTextColor(0, 0, 0)
			y += 14
		}
		y += 10
	}

	outPath = resolveOut(wh, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func trackHeading(tr anno.Track) string {
	if tr.Name == nil {
		return "Track: (unnamed)"
	}
	if strings.TrimSpace(*tr.Name) == "" {
		return "Track:"
	}
	return "Track: " + *tr.Name
}

func countDoc(doc anno.Hkanno) (tracks, annotations int) {
	tracks = len(doc.Tracks)
	for _, tr := range doc.Tracks {
		annotations += len(tr.Annotations)
	}
	return tracks, annotations
}

// resolveDoc loads a clip's stored annotation text and parses it into a
// document; header metadata comes back through the same comment scan the
// editor uses.
func resolveDoc(wh *storage.WorkspaceHandle, clipID string) (domain.Clip, anno.Hkanno, []anno.Error, error) {
	if wh == nil {
		return domain.Clip{}, anno.Hkanno{}, nil, fmt.Errorf("workspace handle is nil")
	}
	c := wh.Workspace.FindClip(clipID)
	if c == nil {
		return domain.Clip{}, anno.Hkanno{}, nil, fmt.Errorf("clip %s not found", clipID)
	}
	text, err := storage.ReadClipText(wh, *c)
	if err != nil {
		return domain.Clip{}, anno.Hkanno{}, nil, fmt.Errorf("read clip text: %w", err)
	}
	tracks, parseErrs := anno.Parse(text)
	frames, duration := anno.ScanHeader(text)
	doc := anno.Hkanno{NumOriginalFrames: frames, Duration: duration, Tracks: tracks}
	return *c, doc, parseErrs, nil
}

// resolveOut places relative output paths under the workspace exports folder.
func resolveOut(wh *storage.WorkspaceHandle, outPath string) string {
	if filepath.IsAbs(outPath) {
		return outPath
	}
	return filepath.Join(wh.Root, "exports", outPath)
}
