/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"hkannostudio/internal/storage"
)

// ProfileName represents a named export profile.
type ProfileName string

const (
	ProfileReview  ProfileName = "review"  // quick visual share: strips only
	ProfileArchive ProfileName = "archive" // full record: sheet, strip, bundle
)

// BatchOptions controls batch export across multiple formats and clips.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <workspace>/exports/<profile>/.
//   - Outputs group by format: pdf/, png/, svg/, bundle/ inside OutDir, named
//     after the clip file stem.
//
//nolint:revive // keep fields explicit for clarity
type BatchOptions struct {
	Profile ProfileName
	Formats []string // allowed: pdf, png, svg, bundle; empty means profile defaults
	Clips   []string // clip ids; empty means all clips
	Width   int      // strip width override for png/svg
	OutDir  string   // base directory for outputs (created per profile if relative)
}

// BatchExport runs exports according to the given profile.
func BatchExport(wh *storage.WorkspaceHandle, opt BatchOptions) error {
	if wh == nil {
		return fmt.Errorf("workspace handle is nil")
	}
	if len(wh.Workspace.Clips) == 0 {
		return fmt.Errorf("workspace has no clips")
	}

	formats := opt.Formats
	if len(formats) == 0 {
		formats = profileDefaultFormats(opt.Profile)
	}
	// normalize format strings
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}

	// Resolve output base directory
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Profile)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(wh.Root, "exports", baseOut)
	}

	// Resolve clips list
	clips := opt.Clips
	if len(clips) == 0 {
		clips = make([]string, len(wh.Workspace.Clips))
		for i := range wh.Workspace.Clips {
			clips[i] = wh.Workspace.Clips[i].ID
		}
	}

	for _, id := range clips {
		c := wh.Workspace.FindClip(id)
		if c == nil {
			return fmt.Errorf("clip %s not found", id)
		}
		stem := clipStem(c.Path)

		for _, f := range formats {
			switch f {
			case "pdf":
				out := filepath.Join(baseOut, "pdf", stem+".pdf")
				if err := ExportTimingSheetPDF(wh, id, out, SheetOptions{IncludeMeta: true}); err != nil {
					return fmt.Errorf("pdf %s: %w", stem, err)
				}
			case "png":
				out := filepath.Join(baseOut, "png", stem+".png")
				if err := ExportTimelinePNG(wh, id, out, StripOptions{Width: opt.Width}); err != nil {
					return fmt.Errorf("png %s: %w", stem, err)
				}
			case "svg":
				out := filepath.Join(baseOut, "svg", stem+".svg")
				if err := ExportTimelineSVG(wh, id, out, StripOptions{Width: opt.Width}); err != nil {
					return fmt.Errorf("svg %s: %w", stem, err)
				}
			case "bundle":
				out := filepath.Join(baseOut, "bundle", stem+".zip")
				// Batch runs tool-less, so bundles ship without markup.
				if err := ExportBundle(wh, id, "", out); err != nil {
					return fmt.Errorf("bundle %s: %w", stem, err)
				}
			default:
				return fmt.Errorf("unknown format: %s", f)
			}
		}
	}
	return nil
}

func profileDefaultFormats(p ProfileName) []string {
	switch p {
	case ProfileReview:
		return []string{"png", "svg"}
	case ProfileArchive:
		return []string{"pdf", "png", "bundle"}
	default:
		return []string{"pdf"}
	}
}

func clipStem(relPath string) string {
	base := filepath.Base(filepath.FromSlash(relPath))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
