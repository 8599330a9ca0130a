/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session holds the headless state of one open annotation document:
// the canonical text buffer, the model parsed from it, the markup mirror and
// its correlation, undo wiring and the dirty flag. One Session per open tab;
// a Session dies with its tab and shares nothing with other tabs. The UI is a
// thin shell over this package, which keeps every editing rule testable
// without a window system.
package session

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"hkannostudio/internal/anno"
	"hkannostudio/internal/correlate"
	"hkannostudio/internal/havok"
	"hkannostudio/internal/undo"
)

// ErrNoTool is returned by operations that need the native tool when the
// session was created without one.
var ErrNoTool = errors.New("session has no tool attached")

// Session is the state of one open document. All methods are safe for
// concurrent use; preview completions land on worker goroutines while edits
// come from the UI thread.
type Session struct {
	mu     sync.Mutex
	clipID string
	path   string
	format havok.Format

	text      string
	tracks    []anno.Track
	parseErrs []anno.Error

	// Tool-reported metadata. The text buffer is canonical for tracks; these
	// survive every re-parse and only change on load or reload.
	ptr      string
	frames   int
	duration float64

	markup string
	dirty  bool

	ctrl    *correlate.Controller
	history *undo.Manager
	tool    *havok.Tool

	// Persist, when set, receives every undo snapshot for durable storage.
	// The app wires this to the workspace snapshot store.
	Persist func(docID, text string, ts time.Time)
}

// New builds a session over existing annotation text, e.g. the workspace text
// mirror of a clip. tool may be nil; preview, save and reload then return
// ErrNoTool. history may be nil for throwaway sessions.
func New(tool *havok.Tool, history *undo.Manager, clipID, path, text string) *Session {
	s := &Session{
		clipID:  clipID,
		path:    path,
		format:  havok.FormatBinary,
		tool:    tool,
		history: history,
		ctrl:    correlate.New(nil),
	}
	s.text = text
	s.tracks, s.parseErrs = anno.Parse(text)
	return s
}

// Open loads the document out of the animation file via the native tool and
// starts the session on its canonical serialization.
func Open(ctx context.Context, tool *havok.Tool, history *undo.Manager, clipID, path string) (*Session, error) {
	if tool == nil {
		return nil, ErrNoTool
	}
	h, err := tool.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	s := New(tool, history, clipID, path, anno.Serialize(*h))
	s.ptr = h.Ptr
	s.frames = h.NumOriginalFrames
	s.duration = h.Duration
	return s, nil
}

// ID returns the undo/snapshot key of this document: the clip id when the
// session belongs to a workspace clip, the file path otherwise.
func (s *Session) ID() string {
	if s.clipID != "" {
		return s.clipID
	}
	return s.path
}

// Path returns the animation file path.
func (s *Session) Path() string { return s.path }

// Text returns the current annotation text buffer.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Markup returns the last installed markup text ("" until a preview landed).
func (s *Session) Markup() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markup
}

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Tracks returns the tracks parsed from the current text.
func (s *Session) Tracks() []anno.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks
}

// ParseErrors returns the parse errors of the current text.
func (s *Session) ParseErrors() []anno.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]anno.Error(nil), s.parseErrs...)
}

// Counts returns track, annotation and parse-error totals for status displays.
func (s *Session) Counts() (tracks, annotations, errs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tr := range s.tracks {
		annotations += len(tr.Annotations)
	}
	return len(s.tracks), annotations, len(s.parseErrs)
}

// Document assembles the current model: tracks from the text buffer, metadata
// from the last load.
func (s *Session) Document() anno.Hkanno {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentLocked()
}

func (s *Session) documentLocked() anno.Hkanno {
	return anno.Hkanno{
		Ptr:               s.ptr,
		NumOriginalFrames: s.frames,
		Duration:          s.duration,
		Tracks:            s.tracks,
	}
}

// SetFormat selects the container encoding Save writes.
func (s *Session) SetFormat(f havok.Format) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = f
}

// SetText replaces the text buffer with an edited version: the previous state
// is pushed for undo, the model is re-parsed, the document goes dirty and the
// correlation generation advances. The returned generation must accompany the
// markup regenerated for this edit. Setting identical text is a no-op.
func (s *Session) SetText(text string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == s.text {
		return s.ctrl.Generation()
	}
	s.pushUndoLocked()
	s.applyTextLocked(text)
	return s.ctrl.Bump()
}

// Canonicalize rewrites the buffer as the canonical serialization of its own
// parse. Reports whether the text changed; an unchanged buffer keeps its
// generation and undo history untouched.
func (s *Session) Canonicalize() (bool, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	canon := anno.Serialize(s.documentLocked())
	if canon == s.text {
		return false, s.ctrl.Generation()
	}
	s.pushUndoLocked()
	s.applyTextLocked(canon)
	return true, s.ctrl.Bump()
}

// Generation returns the current correlation generation.
func (s *Session) Generation() uint64 {
	return s.ctrl.Generation()
}

// InstallMarkup offers regenerated markup for the given generation. Stale
// generations are discarded and leave the session unchanged.
func (s *Session) InstallMarkup(gen uint64, markup string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ctrl.Install(gen, s.text, markup) {
		return false
	}
	s.markup = markup
	return true
}

// RefreshPreview regenerates the markup for the current model through the
// native tool and installs it, unless another edit happened meanwhile.
func (s *Session) RefreshPreview(ctx context.Context) error {
	s.mu.Lock()
	tool := s.tool
	gen := s.ctrl.Generation()
	doc := s.documentLocked()
	path := s.path
	s.mu.Unlock()
	if tool == nil {
		return ErrNoTool
	}
	out, err := tool.Preview(ctx, path, &doc)
	if err != nil {
		return err
	}
	s.InstallMarkup(gen, out)
	return nil
}

// SyncCursor handles a cursor move onto the 1-based primary line and returns
// the matching markup line. Misses (comments, blanks, degraded correlation,
// out-of-range lines) return false and never panic.
func (s *Session) SyncCursor(lineNo int) (int, bool) {
	s.mu.Lock()
	line, ok := lineAt(s.text, lineNo)
	ctrl := s.ctrl
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	return ctrl.Sync(lineNo, line)
}

// CorrelationValid reports whether cursor sync is currently live.
func (s *Session) CorrelationValid() bool { return s.ctrl.Valid() }

// Save writes the document into the animation file via the native tool and
// clears the dirty flag on success.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	tool := s.tool
	doc := s.documentLocked()
	path := s.path
	format := s.format
	s.mu.Unlock()
	if tool == nil {
		return ErrNoTool
	}
	if err := tool.Save(ctx, path, "", format, &doc); err != nil {
		return err
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Reload re-reads the document from disk, replacing buffer and metadata. The
// pre-reload text is pushed for undo, so an accidental reload is reversible.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	tool := s.tool
	path := s.path
	s.mu.Unlock()
	if tool == nil {
		return ErrNoTool
	}
	h, err := tool.Load(ctx, path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushUndoLocked()
	s.applyTextLocked(anno.Serialize(*h))
	s.ptr = h.Ptr
	s.frames = h.NumOriginalFrames
	s.duration = h.Duration
	s.dirty = false
	s.ctrl.Bump()
	return nil
}

// Undo restores the state before the last edit. Returns false when there is
// nothing to undo.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return false
	}
	snap, ok := s.history.Undo(s.idLocked(), []byte(s.text))
	if !ok {
		return false
	}
	s.applyTextLocked(string(snap.Blob))
	s.ctrl.Bump()
	return true
}

// Redo reapplies the last undone state.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == nil {
		return false
	}
	snap, ok := s.history.Redo(s.idLocked(), []byte(s.text))
	if !ok {
		return false
	}
	s.applyTextLocked(string(snap.Blob))
	s.ctrl.Bump()
	return true
}

// Close releases per-document state. The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history != nil {
		s.history.ClearDocument(s.idLocked())
	}
	s.ctrl.Reset()
	s.markup = ""
}

func (s *Session) idLocked() string {
	if s.clipID != "" {
		return s.clipID
	}
	return s.path
}

func (s *Session) applyTextLocked(text string) {
	s.text = text
	s.tracks, s.parseErrs = anno.Parse(text)
	s.dirty = true
}

func (s *Session) pushUndoLocked() {
	if s.history == nil {
		return
	}
	ts := time.Now()
	id, text := s.idLocked(), s.text
	s.history.PushSnapshot(undo.Snapshot{DocumentID: id, Blob: []byte(text), TS: ts})
	if s.Persist != nil {
		// Durable persistence must not block the edit path.
		go s.Persist(id, text, ts)
	}
}

func lineAt(text string, lineNo int) (string, bool) {
	if lineNo < 1 {
		return "", false
	}
	scanner := bufio.NewScanner(strings.NewReader(text))
	n := 0
	for scanner.Scan() {
		n++
		if n == lineNo {
			return scanner.Text(), true
		}
	}
	return "", false
}
