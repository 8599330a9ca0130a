/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package havok

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"hkannostudio/internal/anno"
	applog "hkannostudio/internal/log"
)

// Format selects the container encoding the update verb writes.
type Format string

const (
	// FormatBinary writes the packed binary container (the game-ready form).
	FormatBinary Format = "binary"
	// FormatXML writes the tagfile XML container.
	FormatXML Format = "xml"
)

// ErrNotConfigured is returned when no tool path is set.
var ErrNotConfigured = errors.New("hkanno tool path not configured")

// Tool is a client for the native hkanno core binary.
type Tool struct {
	// Path is the binary path or bare name (resolved through PATH).
	Path string
	// Timeout bounds each tool invocation; <= 0 means no deadline beyond the
	// caller's context.
	Timeout time.Duration
	// Backup, when set, is called with the path of the file the update verb is
	// about to rewrite, before the tool runs. The app wires this to the
	// workspace vault; a backup failure aborts the save.
	Backup func(path string) error
}

// New returns a client for the tool at path. Call sites pass the configured
// tool path and timeout (config.Tool.Path, config.Tool.Timeout()).
func New(path string, timeout time.Duration) *Tool {
	return &Tool{Path: path, Timeout: timeout}
}

// Load reads the annotation document out of the animation file at path: the
// dump verb supplies the header metadata and the annotation text, the xml
// verb supplies the markup the Ptr token is read from.
func (t *Tool) Load(ctx context.Context, path string) (*anno.Hkanno, error) {
	out, err := t.run(ctx, "dump", path)
	if err != nil {
		return nil, err
	}
	text := string(out)
	frames, duration := anno.ScanHeader(text)
	tracks, perrs := anno.Parse(text)
	if len(perrs) > 0 {
		return nil, fmt.Errorf("dump output of %s: %d malformed line(s), first at line %d: %s",
			filepath.Base(path), len(perrs), perrs[0].Line, perrs[0].Message)
	}
	h := &anno.Hkanno{
		NumOriginalFrames: frames,
		Duration:          duration,
		Tracks:            tracks,
	}
	markup, err := t.run(ctx, "xml", path)
	if err != nil {
		return nil, err
	}
	info, err := parseMarkupInfo(markup)
	if err != nil {
		return nil, err
	}
	h.Ptr = info.Ptr
	return h, nil
}

// Save writes the document's annotations into the animation file. The model
// is serialized to a temp file and handed to the update verb; when outPath is
// empty or equal to inPath the tool rewrites inPath in place. The rewrite
// target is backed up first when a Backup hook is set. On any error the
// target file is either untouched or restorable from that backup; the model
// itself is never mutated here.
func (t *Tool) Save(ctx context.Context, inPath, outPath string, format Format, h *anno.Hkanno) error {
	if h == nil {
		return errors.New("nil document")
	}
	target := outPath
	if target == "" || target == inPath {
		target = inPath
	}
	if t.Backup != nil {
		if _, err := os.Stat(target); err == nil {
			if err := t.Backup(target); err != nil {
				return fmt.Errorf("backup before update: %w", err)
			}
		}
	}
	tmp, err := writeTempAnnotations(h)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	_, err = t.run(ctx, updateArgs(tmp, inPath, outPath, format)...)
	return err
}

// Preview regenerates the markup text for path with the document's current
// annotations applied in memory. A nil document previews the file as stored.
func (t *Tool) Preview(ctx context.Context, path string, h *anno.Hkanno) (string, error) {
	if h == nil {
		out, err := t.run(ctx, "xml", path)
		return string(out), err
	}
	tmp, err := writeTempAnnotations(h)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)
	out, err := t.run(ctx, "xml", "-i", tmp, path)
	return string(out), err
}

// Inspect reports the clip metadata visible in the markup without building a
// document model.
func (t *Tool) Inspect(ctx context.Context, path string) (ClipInfo, error) {
	markup, err := t.run(ctx, "xml", path)
	if err != nil {
		return ClipInfo{}, err
	}
	return parseMarkupInfo(markup)
}

// updateArgs assembles the update verb's argument list. The -o flag is only
// passed for a genuine copy-update; in-place rewrites rely on the tool's
// default behavior.
func updateArgs(tmpTxt, inPath, outPath string, format Format) []string {
	args := []string{"update", "-i", tmpTxt}
	if format != "" {
		args = append(args, "-f", string(format))
	}
	if outPath != "" && outPath != inPath {
		args = append(args, "-o", outPath)
	}
	return append(args, inPath)
}

// run executes one tool invocation and returns its stdout. Stderr is captured
// and surfaced in the wrapped error.
func (t *Tool) run(ctx context.Context, args ...string) ([]byte, error) {
	bin := strings.TrimSpace(t.Path)
	if bin == "" {
		return nil, ErrNotConfigured
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	verb := args[0]
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	applog.WithComponent("havok").Debug("tool call",
		slog.String("verb", verb),
		slog.Duration("took", time.Since(start)),
		slog.Bool("ok", err == nil),
	)
	if err != nil {
		name := filepath.Base(bin)
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s not found at %q: set tool.path in the config or HKS_TOOL_PATH", name, bin)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s %s: timed out after %s", name, verb, t.Timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", name, verb, err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", name, verb, err)
	}
	return stdout.Bytes(), nil
}

// writeTempAnnotations serializes the document to a temp file for the -i flag
// of the update and xml verbs. The caller removes the file.
func writeTempAnnotations(h *anno.Hkanno) (string, error) {
	f, err := os.CreateTemp("", "hkanno-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp annotations: %w", err)
	}
	if _, err := f.WriteString(anno.Serialize(*h)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write temp annotations: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp annotations: %w", err)
	}
	return f.Name(), nil
}
