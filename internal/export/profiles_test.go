/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBatchExportArchiveProfile(t *testing.T) {
	wh, _ := sampleWorkspace(t)
	if err := BatchExport(wh, BatchOptions{Profile: ProfileArchive}); err != nil {
		t.Fatalf("batch export: %v", err)
	}
	base := filepath.Join(wh.Root, "exports", "archive")
	for _, rel := range []string{
		filepath.Join("pdf", "runforward.pdf"),
		filepath.Join("png", "runforward.png"),
		filepath.Join("bundle", "runforward.zip"),
	} {
		st, err := os.Stat(filepath.Join(base, rel))
		if err != nil {
			t.Fatalf("expected %s: %v", rel, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("%s empty", rel)
		}
	}
}

func TestBatchExportRejectsUnknowns(t *testing.T) {
	wh, _ := sampleWorkspace(t)
	if err := BatchExport(wh, BatchOptions{Formats: []string{"docx"}}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if err := BatchExport(wh, BatchOptions{Clips: []string{"no-such-clip"}}); err == nil {
		t.Fatalf("expected unknown clip error")
	}
	if err := BatchExport(nil, BatchOptions{}); err == nil {
		t.Fatalf("expected nil handle error")
	}
}
