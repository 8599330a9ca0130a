/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherFiresOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "run.hkx")
	if err := os.WriteFile(file, []byte("v0"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	w, err := New(100 * time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	hits := make(chan string, 16)
	if err := w.Watch(file, func(path string) { hits <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	w.Start(context.Background())

	// A burst of writes, as an in-place updater produces
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(file, []byte{byte(i)}, 0o644); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case got := <-hits:
		if filepath.Base(got) != "run.hkx" {
			t.Fatalf("unexpected path %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a change callback")
	}
	// The burst settles into a single callback
	select {
	case <-hits:
		t.Fatalf("expected debouncing to merge the burst")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherIgnoresUnsubscribedFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "a.hkx")
	other := filepath.Join(dir, "b.hkx")
	for _, p := range []string{watched, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}

	w, err := New(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	hits := make(chan string, 4)
	if err := w.Watch(watched, func(path string) { hits <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	w.Start(context.Background())

	if err := os.WriteFile(other, []byte("y"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}
	select {
	case got := <-hits:
		t.Fatalf("unexpected callback for %q", got)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestUnwatchStopsCallbacks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "c.hkx")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w, err := New(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	hits := make(chan string, 4)
	if err := w.Watch(file, func(path string) { hits <- path }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	w.Start(context.Background())
	w.Unwatch(file)

	if err := os.WriteFile(file, []byte("y"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case got := <-hits:
		t.Fatalf("unexpected callback after unwatch: %q", got)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w, err := New(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start(context.Background())
	w.Stop()
	w.Stop() // second stop must not panic or block
}
