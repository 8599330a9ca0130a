// Command hkannoctl is the batch command-line companion to Hkanno Studio.
// It wraps the native hkanno core tool for scripted dump, update and preview
// work, and canonicalizes annotation text files on its own.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kong"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"hkannostudio/internal/anno"
	"hkannostudio/internal/config"
	"hkannostudio/internal/domain"
	"hkannostudio/internal/export"
	"hkannostudio/internal/havok"
	applog "hkannostudio/internal/log"
	"hkannostudio/internal/storage"
	"hkannostudio/internal/version"
)

// CLI defines the command-line interface for hkannoctl.
var CLI struct {
	// Global flags
	Tool    string        `help:"Path to the hkanno executable (defaults to the configured one)." type:"path"`
	Timeout time.Duration `help:"Timeout per tool invocation (0 uses the configured default)."`

	Dump    DumpCmd     `cmd:"" help:"Extract annotations from an animation file as canonical text."`
	Fmt     FmtCmd      `cmd:"" help:"Canonicalize an annotation text file."`
	Update  UpdateCmd   `cmd:"" help:"Write annotations from a text file into an animation file."`
	Preview PreviewCmd  `cmd:"" help:"Print the tool's markup view of an animation file."`
	Info    InfoCmd     `cmd:"" help:"Print clip metadata read from the markup view."`
	Batch   BatchGroup  `cmd:"" help:"Bulk operations over glob-selected animation files."`
	Export  ExportGroup `cmd:"" help:"Render timeline images, timing sheets and share bundles from a workspace."`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// BatchGroup contains the bulk file operations.
type BatchGroup struct {
	Dump   BatchDumpCmd   `cmd:"" help:"Dump an annotation text sidecar for every matching file."`
	Update BatchUpdateCmd `cmd:"" help:"Apply annotation text sidecars to every matching file."`
}

// ExportGroup contains the workspace export operations.
type ExportGroup struct {
	Bundle   ExportBundleCmd   `cmd:"" help:"Package one clip's annotations as a share bundle (.zip)."`
	Timeline ExportTimelineCmd `cmd:"" help:"Render a clip's annotation timeline as PNG or SVG."`
	Sheet    ExportSheetCmd    `cmd:"" help:"Render a clip's timing sheet as PDF."`
	Batch    ExportBatchCmd    `cmd:"" help:"Run a named export profile over many clips."`
}

// newTool builds the tool client from the global flags, falling back to the
// configured path and timeout for whatever the flags leave unset.
func newTool() *havok.Tool {
	cfg, _, _ := config.Load()
	path := CLI.Tool
	if path == "" {
		path = cfg.Tool.Path
	}
	timeout := CLI.Timeout
	if timeout <= 0 {
		timeout = cfg.Tool.Timeout()
	}
	return havok.New(path, timeout)
}

// loadTextDocument parses an annotation text file into a document model,
// failing on any malformed line.
func loadTextDocument(path string) (*anno.Hkanno, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)
	tracks, perrs := anno.Parse(text)
	if len(perrs) > 0 {
		return nil, fmt.Errorf("%s: %d malformed line(s), first at line %d: %s",
			path, len(perrs), perrs[0].Line, perrs[0].Message)
	}
	frames, duration := anno.ScanHeader(text)
	return &anno.Hkanno{NumOriginalFrames: frames, Duration: duration, Tracks: tracks}, nil
}

func parseFormat(s string) (havok.Format, error) {
	switch s {
	case "":
		return "", nil
	case "binary":
		return havok.FormatBinary, nil
	case "xml":
		return havok.FormatXML, nil
	}
	return "", fmt.Errorf("unknown format %q (use binary or xml)", s)
}

// sidecarPath swaps the animation file's extension for the sidecar one, so
// clips/run.hkx pairs with clips/run.anno.txt.
func sidecarPath(animPath, ext string) string {
	return strings.TrimSuffix(animPath, filepath.Ext(animPath)) + ext
}

// DumpCmd extracts the annotation text from one animation file.
type DumpCmd struct {
	Path string `arg:"" help:"Animation file (.hkx or tagfile XML)." type:"existingfile"`
	Out  string `short:"o" help:"Write to this file instead of stdout." type:"path"`
}

func (c *DumpCmd) Run() error {
	tool := newTool()
	h, err := tool.Load(context.Background(), c.Path)
	if err != nil {
		return err
	}
	text := anno.Serialize(*h)
	if c.Out == "" {
		fmt.Print(text)
		return nil
	}
	if err := os.WriteFile(c.Out, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	fmt.Printf("Dumped %s -> %s\n", c.Path, c.Out)
	return nil
}

// FmtCmd canonicalizes an annotation text file, gofmt-style.
type FmtCmd struct {
	Path  string `arg:"" help:"Annotation text file." type:"existingfile"`
	Write bool   `short:"w" help:"Rewrite the file in place instead of printing."`
}

func (c *FmtCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}
	text := string(data)
	tracks, perrs := anno.Parse(text)
	if len(perrs) > 0 {
		for _, pe := range perrs {
			fmt.Fprintf(os.Stderr, "%s:%d: %s\n", c.Path, pe.Line, pe.Message)
		}
		return fmt.Errorf("%d malformed line(s)", len(perrs))
	}
	frames, duration := anno.ScanHeader(text)
	out := anno.Serialize(anno.Hkanno{NumOriginalFrames: frames, Duration: duration, Tracks: tracks})
	if !c.Write {
		fmt.Print(out)
		return nil
	}
	if out == text {
		return nil
	}
	if err := os.WriteFile(c.Path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.Path, err)
	}
	fmt.Printf("Formatted %s\n", c.Path)
	return nil
}

// UpdateCmd writes annotations from a text file into an animation file.
type UpdateCmd struct {
	Path   string `arg:"" help:"Animation file to update." type:"existingfile"`
	Text   string `required:"" short:"t" help:"Annotation text file to apply." type:"existingfile"`
	Out    string `short:"o" help:"Write the updated copy here instead of rewriting in place." type:"path"`
	Format string `short:"f" help:"Container format to write: binary or xml (default keeps the tool's)."`
}

func (c *UpdateCmd) Run() error {
	format, err := parseFormat(c.Format)
	if err != nil {
		return err
	}
	h, err := loadTextDocument(c.Text)
	if err != nil {
		return err
	}
	tool := newTool()
	if err := tool.Save(context.Background(), c.Path, c.Out, format, h); err != nil {
		return err
	}
	target := c.Out
	if target == "" {
		target = c.Path
	}
	fmt.Printf("Updated %s (%d track(s)).\n", target, len(h.Tracks))
	return nil
}

// PreviewCmd prints the tool's markup view of an animation file, optionally
// with an annotation text applied in memory first.
type PreviewCmd struct {
	Path string `arg:"" help:"Animation file." type:"existingfile"`
	Text string `short:"t" help:"Preview with this annotation text applied (the file on disk stays untouched)." type:"existingfile"`
}

func (c *PreviewCmd) Run() error {
	var h *anno.Hkanno
	if c.Text != "" {
		doc, err := loadTextDocument(c.Text)
		if err != nil {
			return err
		}
		h = doc
	}
	tool := newTool()
	markup, err := tool.Preview(context.Background(), c.Path, h)
	if err != nil {
		return err
	}
	fmt.Print(markup)
	return nil
}

// InfoCmd prints the clip metadata the markup view exposes.
type InfoCmd struct {
	Path string `arg:"" help:"Animation file." type:"existingfile"`
}

func (c *InfoCmd) Run() error {
	tool := newTool()
	info, err := tool.Inspect(context.Background(), c.Path)
	if err != nil {
		return err
	}
	fmt.Printf("Object:      %s\n", info.Ptr)
	if info.Skeleton != "" {
		fmt.Printf("Skeleton:    %s\n", info.Skeleton)
	}
	fmt.Printf("Duration:    %.6f s\n", info.Duration)
	fmt.Printf("Tracks:      %d\n", info.NumTracks)
	fmt.Printf("Annotations: %d\n", info.NumAnnotations)
	return nil
}

// BatchDumpCmd dumps an annotation text sidecar for every matching file.
type BatchDumpCmd struct {
	Dir  string `help:"Root directory to search." default:"." type:"existingdir"`
	Glob string `help:"Doublestar pattern relative to --dir." default:"**/*.hkx"`
	Ext  string `help:"Extension for the sidecar text files." default:".anno.txt"`
	Jobs int    `short:"j" help:"Parallel tool invocations." default:"4"`
}

func (c *BatchDumpCmd) Run() error {
	matches, err := doublestar.Glob(os.DirFS(c.Dir), c.Glob)
	if err != nil {
		return fmt.Errorf("bad glob %q: %w", c.Glob, err)
	}
	if len(matches) == 0 {
		fmt.Println("No files matched.")
		return nil
	}
	tool := newTool()
	jobs := c.Jobs
	if jobs < 1 {
		jobs = 1
	}
	var done atomic.Int64
	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(jobs)
	for _, rel := range matches {
		eg.Go(func() error {
			in := filepath.Join(c.Dir, filepath.FromSlash(rel))
			h, err := tool.Load(ctx, in)
			if err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			out := sidecarPath(in, c.Ext)
			if err := os.WriteFile(out, []byte(anno.Serialize(*h)), 0o644); err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			done.Add(1)
			fmt.Printf("  %s -> %s\n", rel, filepath.Base(out))
			return nil
		})
	}
	err = eg.Wait()
	fmt.Printf("Dumped %d of %d file(s).\n", done.Load(), len(matches))
	return err
}

// BatchUpdateCmd applies annotation text sidecars to every matching file.
// Files without a sidecar are skipped, so a partially annotated tree is fine.
type BatchUpdateCmd struct {
	Dir    string `help:"Root directory to search." default:"." type:"existingdir"`
	Glob   string `help:"Doublestar pattern relative to --dir." default:"**/*.hkx"`
	Ext    string `help:"Extension the sidecar text files carry." default:".anno.txt"`
	Format string `short:"f" help:"Container format to write: binary or xml (default keeps the tool's)."`
	Jobs   int    `short:"j" help:"Parallel tool invocations." default:"4"`
}

func (c *BatchUpdateCmd) Run() error {
	format, err := parseFormat(c.Format)
	if err != nil {
		return err
	}
	matches, err := doublestar.Glob(os.DirFS(c.Dir), c.Glob)
	if err != nil {
		return fmt.Errorf("bad glob %q: %w", c.Glob, err)
	}
	if len(matches) == 0 {
		fmt.Println("No files matched.")
		return nil
	}
	tool := newTool()
	jobs := c.Jobs
	if jobs < 1 {
		jobs = 1
	}
	var updated, skipped atomic.Int64
	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(jobs)
	for _, rel := range matches {
		eg.Go(func() error {
			in := filepath.Join(c.Dir, filepath.FromSlash(rel))
			txt := sidecarPath(in, c.Ext)
			if _, err := os.Stat(txt); err != nil {
				skipped.Add(1)
				return nil
			}
			h, err := loadTextDocument(txt)
			if err != nil {
				return err
			}
			if err := tool.Save(ctx, in, "", format, h); err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			updated.Add(1)
			fmt.Printf("  %s\n", rel)
			return nil
		})
	}
	err = eg.Wait()
	fmt.Printf("Updated %d file(s), skipped %d without sidecars.\n", updated.Load(), skipped.Load())
	return err
}

// resolveClip finds a manifest clip by id, display name or manifest-relative
// path, in that order of preference.
func resolveClip(wh *storage.WorkspaceHandle, ref string) (domain.Clip, error) {
	for _, c := range wh.Workspace.Clips {
		if c.ID == ref || strings.EqualFold(c.DisplayName, ref) || c.Path == filepath.ToSlash(ref) {
			return c, nil
		}
	}
	return domain.Clip{}, fmt.Errorf("no clip %q in workspace (use id, display name or manifest path)", ref)
}

// ExportBundleCmd packages one clip's annotations as a share bundle.
type ExportBundleCmd struct {
	Workspace string `arg:"" help:"Workspace directory." type:"existingdir"`
	Clip      string `arg:"" help:"Clip id, display name or manifest path."`
	Out       string `required:"" short:"o" help:"Bundle file to write (.zip)." type:"path"`
	Markup    bool   `help:"Include the tool-generated markup view in the bundle."`
}

func (c *ExportBundleCmd) Run() error {
	wh, err := storage.Open(c.Workspace)
	if err != nil {
		return err
	}
	clip, err := resolveClip(wh, c.Clip)
	if err != nil {
		return err
	}
	var markup string
	if c.Markup {
		tool := newTool()
		markup, err = tool.Preview(context.Background(), storage.ClipFilePath(wh, clip), nil)
		if err != nil {
			return fmt.Errorf("markup view: %w", err)
		}
	}
	if err := export.ExportBundle(wh, clip.ID, markup, c.Out); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", c.Out)
	return nil
}

// ExportTimelineCmd renders one clip's annotation timeline as a strip image.
// The output extension picks the encoder.
type ExportTimelineCmd struct {
	Workspace string `arg:"" help:"Workspace directory." type:"existingdir"`
	Clip      string `arg:"" help:"Clip id, display name or manifest path."`
	Out       string `required:"" short:"o" help:"Image file to write (.png or .svg)." type:"path"`
	Width     int    `help:"Strip width in pixels (0 uses the default)."`
}

func (c *ExportTimelineCmd) Run() error {
	wh, err := storage.Open(c.Workspace)
	if err != nil {
		return err
	}
	clip, err := resolveClip(wh, c.Clip)
	if err != nil {
		return err
	}
	opt := export.StripOptions{Width: c.Width}
	switch strings.ToLower(filepath.Ext(c.Out)) {
	case ".png":
		err = export.ExportTimelinePNG(wh, clip.ID, c.Out, opt)
	case ".svg":
		err = export.ExportTimelineSVG(wh, clip.ID, c.Out, opt)
	default:
		return fmt.Errorf("output must end in .png or .svg, got %q", filepath.Ext(c.Out))
	}
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", c.Out)
	return nil
}

// ExportSheetCmd renders one clip's timing sheet as a PDF.
type ExportSheetCmd struct {
	Workspace string `arg:"" help:"Workspace directory." type:"existingdir"`
	Clip      string `arg:"" help:"Clip id, display name or manifest path."`
	Out       string `required:"" short:"o" help:"PDF file to write." type:"path"`
}

func (c *ExportSheetCmd) Run() error {
	wh, err := storage.Open(c.Workspace)
	if err != nil {
		return err
	}
	clip, err := resolveClip(wh, c.Clip)
	if err != nil {
		return err
	}
	if err := export.ExportTimingSheetPDF(wh, clip.ID, c.Out, export.SheetOptions{IncludeMeta: true}); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", c.Out)
	return nil
}

// ExportBatchCmd runs a named export profile over many clips at once.
type ExportBatchCmd struct {
	Workspace string   `arg:"" help:"Workspace directory." type:"existingdir"`
	Profile   string   `help:"Export profile." enum:"review,archive" default:"review"`
	Formats   []string `help:"Override the profile's formats (pdf, png, svg, bundle)."`
	Clips     []string `help:"Only these clips (id, display name or manifest path); default all."`
	Width     int      `help:"Strip width in pixels for png/svg (0 uses the default)."`
	OutDir    string   `help:"Output directory (default <workspace>/exports/<profile>/)." type:"path"`
}

func (c *ExportBatchCmd) Run() error {
	wh, err := storage.Open(c.Workspace)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(c.Clips))
	for _, ref := range c.Clips {
		clip, err := resolveClip(wh, ref)
		if err != nil {
			return err
		}
		ids = append(ids, clip.ID)
	}
	err = export.BatchExport(wh, export.BatchOptions{
		Profile: export.ProfileName(c.Profile),
		Formats: c.Formats,
		Clips:   ids,
		Width:   c.Width,
		OutDir:  c.OutDir,
	})
	if err != nil {
		return err
	}
	n := len(ids)
	if n == 0 {
		n = len(wh.Workspace.Clips)
	}
	fmt.Printf("Exported %d clip(s) with the %s profile.\n", n, c.Profile)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(version.String())
	return nil
}

func main() {
	applog.Init(applog.FromEnv())
	ctx := kong.Parse(&CLI,
		kong.Name("hkannoctl"),
		kong.Description("Hkanno Studio batch companion - scripted annotation dump, format and update"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
