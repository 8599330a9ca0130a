/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"testing"
	"time"
)

func TestEnvOverridesLibraryURL(t *testing.T) {
	old := os.Getenv(EnvLibraryURL)
	_ = os.Setenv(EnvLibraryURL, "https://example.test:8443")
	t.Cleanup(func() { _ = os.Setenv(EnvLibraryURL, old) })
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Library.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Library.BaseURL = %q, want %q", got, want)
	}
}

func TestEnvOverridesToolPath(t *testing.T) {
	old := os.Getenv(EnvToolPath)
	_ = os.Setenv(EnvToolPath, "/opt/hkanno/hkanno64.exe")
	t.Cleanup(func() { _ = os.Setenv(EnvToolPath, old) })
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Tool.Path, "/opt/hkanno/hkanno64.exe"; got != want {
		t.Fatalf("Tool.Path = %q, want %q", got, want)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	old := os.Getenv(EnvTelemetryOptIn)
	_ = os.Setenv(EnvTelemetryOptIn, "true")
	t.Cleanup(func() { _ = os.Setenv(EnvTelemetryOptIn, old) })
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestMergeIncludesEnableLibrary(t *testing.T) {
	// Given a file config that sets enable_library, mergeInto should carry it through
	dst := Defaults()
	src := Defaults()
	src.General.EnableLibrary = true
	mergeInto(&dst, &src)
	if !dst.General.EnableLibrary {
		t.Fatalf("EnableLibrary was not merged from file config")
	}
}

func TestMergeIncludesTool(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Tool.Path = "C:/Tools/hkanno64.exe"
	src.Tool.TimeoutMs = 45000
	mergeInto(&dst, &src)
	if dst.Tool.Path != "C:/Tools/hkanno64.exe" || dst.Tool.TimeoutMs != 45000 {
		t.Fatalf("tool fields not merged correctly: %#v", dst.Tool)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/hks.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/hks.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	oldLevel := os.Getenv(EnvLogLevel)
	oldFmt := os.Getenv(EnvLogFormat)
	oldSrc := os.Getenv(EnvLogSource)
	oldFile := os.Getenv(EnvLogFile)
	_ = os.Setenv(EnvLogLevel, "error")
	_ = os.Setenv(EnvLogFormat, "json")
	_ = os.Setenv(EnvLogSource, "1")
	_ = os.Setenv(EnvLogFile, "X:/hks.log")
	t.Cleanup(func() {
		_ = os.Setenv(EnvLogLevel, oldLevel)
		_ = os.Setenv(EnvLogFormat, oldFmt)
		_ = os.Setenv(EnvLogSource, oldSrc)
		_ = os.Setenv(EnvLogFile, oldFile)
	})
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/hks.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestToolTimeoutFallsBackToDefault(t *testing.T) {
	tc := ToolConfig{TimeoutMs: 0}
	if got := tc.Timeout(); got != 30*time.Second {
		t.Fatalf("expected default 30s, got %v", got)
	}
	tc.TimeoutMs = 5000
	if got := tc.Timeout(); got != 5*time.Second {
		t.Fatalf("expected 5s, got %v", got)
	}
}
