/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package watch reports external rewrites of open animation files so the
// editor can offer a reload. The native tool and other programs rewrite .hkx
// files in place or via temp-and-rename, so the watcher observes parent
// directories and filters for subscribed paths. Events are debounced per file;
// one settled change produces one callback.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "hkannostudio/internal/log"
)

// Watcher dispatches debounced per-file change callbacks. Callbacks run on
// the watcher goroutine; subscribers hand off to their own context quickly.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]time.Time
	subs     map[string]func(path string)
	dirRefs  map[string]int
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	log      *slog.Logger
}

// New creates a stopped watcher. debounce <= 0 selects a 500ms window, wide
// enough to swallow the write bursts in-place updaters produce.
func New(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		fsw:      fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		subs:     make(map[string]func(string)),
		dirRefs:  make(map[string]int),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		log:      applog.WithComponent("watch"),
	}, nil
}

// Start launches the event loop. Calling Start twice is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()
	go w.run(ctx)
}

// Stop shuts the loop down and closes the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()
	close(w.stopCh)
	<-w.doneCh
	if err := w.fsw.Close(); err != nil {
		w.log.Warn("closing fs watcher", slog.String("err", err.Error()))
	}
}

// Watch subscribes onChange to rewrites of the file at path. The parent
// directory enters the watch set; multiple files in one directory share it.
func (w *Watcher) Watch(path string, onChange func(path string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirRefs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	w.dirRefs[dir]++
	w.subs[abs] = onChange
	return nil
}

// Unwatch removes the subscription for path. The parent directory leaves the
// watch set when its last subscription goes.
func (w *Watcher) Unwatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	dir := filepath.Dir(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.subs[abs]; !ok {
		return
	}
	delete(w.subs, abs)
	delete(w.pending, abs)
	w.dirRefs[dir]--
	if w.dirRefs[dir] <= 0 {
		delete(w.dirRefs, dir)
		_ = w.fsw.Remove(dir)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	tick := time.NewTicker(w.debounce / 4)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", slog.String("err", err.Error()))
		case <-tick.C:
			w.fireSettled()
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return // chmod etc.
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, subscribed := w.subs[abs]; !subscribed {
		return
	}
	w.pending[abs] = time.Now()
}

func (w *Watcher) fireSettled() {
	now := time.Now()
	w.mu.Lock()
	var fire []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			fire = append(fire, path)
			delete(w.pending, path)
		}
	}
	callbacks := make([]func(string), len(fire))
	for i, path := range fire {
		callbacks[i] = w.subs[path]
	}
	w.mu.Unlock()
	for i, path := range fire {
		if cb := callbacks[i]; cb != nil {
			w.log.Debug("file changed on disk", slog.String("path", path))
			cb(path)
		}
	}
}
