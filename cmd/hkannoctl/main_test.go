package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hkannostudio/internal/domain"
	"hkannostudio/internal/storage"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"binary", "binary", false},
		{"xml", "xml", false},
		{"win32", "", true},
		{"BINARY", "", true},
	}
	for _, c := range cases {
		got, err := parseFormat(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseFormat(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseFormat(%q): %v", c.in, err)
			continue
		}
		if string(got) != c.want {
			t.Errorf("parseFormat(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSidecarPath(t *testing.T) {
	if got := sidecarPath(filepath.Join("clips", "run.hkx"), ".anno.txt"); got != filepath.Join("clips", "run.anno.txt") {
		t.Fatalf("unexpected sidecar path: %q", got)
	}
	if got := sidecarPath("attack.xml", ".anno.txt"); got != "attack.anno.txt" {
		t.Fatalf("unexpected sidecar path: %q", got)
	}
}

func TestLoadTextDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.anno.txt")
	text := "# numOriginalFrames: 40\n" +
		"# duration: 1.300000\n" +
		"trackName: Default\n" +
		"0.100000 FootLeft\n" +
		"0.700000 FootRight\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := loadTextDocument(path)
	if err != nil {
		t.Fatalf("loadTextDocument: %v", err)
	}
	if h.NumOriginalFrames != 40 {
		t.Errorf("frames = %d, want 40", h.NumOriginalFrames)
	}
	if h.Duration != 1.3 {
		t.Errorf("duration = %v, want 1.3", h.Duration)
	}
	if len(h.Tracks) != 1 || len(h.Tracks[0].Annotations) != 2 {
		t.Fatalf("unexpected model shape: %+v", h.Tracks)
	}
}

func TestLoadTextDocumentMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.anno.txt")
	if err := os.WriteFile(path, []byte("trackName: X\nnot-a-time hit\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := loadTextDocument(path)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error should name the line: %v", err)
	}
}

func TestFmtCmdWriteCanonicalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loose.txt")
	// Loose spacing and missing count comments; fmt should normalize both.
	loose := "trackname:Walk\n0.1   FootLeft\n0.5 FootRight\n"
	if err := os.WriteFile(path, []byte(loose), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := &FmtCmd{Path: path, Write: true}
	if err := cmd.Run(); err != nil {
		t.Fatalf("fmt: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(out)
	if !strings.Contains(got, "trackName: Walk\n") {
		t.Errorf("header not canonicalized:\n%s", got)
	}
	if !strings.Contains(got, "0.100000 FootLeft\n") {
		t.Errorf("times not rendered at six decimals:\n%s", got)
	}
	if !strings.HasPrefix(got, "# numOriginalFrames: 0\n") {
		t.Errorf("missing metadata header:\n%s", got)
	}

	// A second run must be a no-op.
	before, _ := os.Stat(path)
	if err := cmd.Run(); err != nil {
		t.Fatalf("fmt (second run): %v", err)
	}
	after, _ := os.Stat(path)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("second fmt run rewrote an already canonical file")
	}
}

func TestFmtCmdRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte("garbage here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := &FmtCmd{Path: path, Write: true}
	if err := cmd.Run(); err == nil {
		t.Fatal("expected error for malformed input")
	}
	// The file must be left untouched on error.
	out, _ := os.ReadFile(path)
	if string(out) != "garbage here\n" {
		t.Fatalf("malformed file was modified: %q", out)
	}
}

func TestResolveClip(t *testing.T) {
	wh := &storage.WorkspaceHandle{
		Workspace: domain.Workspace{
			Clips: []domain.Clip{
				{ID: "c1", DisplayName: "Run Forward", Path: "clips/run_fwd.hkx"},
				{ID: "c2", DisplayName: "Attack", Path: "clips/attack.hkx"},
			},
		},
	}

	// Every reference style should land on the same clip.
	for _, ref := range []string{"c2", "attack", "clips/attack.hkx"} {
		clip, err := resolveClip(wh, ref)
		if err != nil {
			t.Fatalf("resolveClip(%q): %v", ref, err)
		}
		if clip.ID != "c2" {
			t.Fatalf("resolveClip(%q) = %s, want c2", ref, clip.ID)
		}
	}

	if _, err := resolveClip(wh, "missing"); err == nil {
		t.Fatal("expected error for unknown clip reference")
	}
}
