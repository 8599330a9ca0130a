/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package presets

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "hkannostudio/internal/log"
)

// ExportPacks zips the workspace presets directory (<workspace>/presets) into a
// single .zip file. The produced archive preserves the directory structure and
// adds a small manifest file at the root named presetpack.manifest.txt for
// quick human inspection. If the presets directory does not exist or is empty,
// it still creates the archive with only the manifest.
func ExportPacks(workspaceRoot string, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("presets"), "export").With(slog.String("workspace", workspaceRoot))
	if strings.TrimSpace(workspaceRoot) == "" {
		return errors.New("workspaceRoot is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	dir := Dir(workspaceRoot)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Create empty dir semantics
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure presets dir: %w", err)
		}
	}

	// Ensure target directory exists
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)
	defer func() { _ = zw.Close() }()

	// Add manifest text
	manifest := fmt.Sprintf("Hkanno Studio Preset Pack\nCreated: %s\nWorkspace: %s\n\nContents mirror the workspace's /presets directory.\n",
		time.Now().Format(time.RFC3339), workspaceRoot)
	w, err := zw.Create("presetpack.manifest.txt")
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write([]byte(manifest)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	// Walk presets folder and add files
	added := 0
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(workspaceRoot, path)
		if err != nil {
			return err
		}
		zipName := filepath.ToSlash(rel)
		fw, err := zw.Create(zipName)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
		added++
		return nil
	})
	if err != nil {
		l.Error("zip build failed", slog.Any("err", err))
		return fmt.Errorf("build zip: %w", err)
	}
	l.Info("preset pack exported", slog.Int("files", added), slog.String("zip", destZipPath))
	return nil
}

// InstallPackArchive extracts the given .zip pack into the workspace presets
// directory. Existing files are not overwritten; if a file already exists, it
// is skipped. YAML pack files that fail validation are skipped as well, so a
// bad archive cannot plant unloadable packs. Returns the count of files
// installed (skipped files are not counted).
func InstallPackArchive(workspaceRoot string, packZipPath string) (int, error) {
	if strings.TrimSpace(packZipPath) == "" {
		return 0, errors.New("packZipPath is required")
	}
	r, err := zip.OpenReader(packZipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()
	return installFiles(workspaceRoot, r.File)
}

// InstallPackBytes installs a pack archive held in memory, as fetched from the
// team library server.
func InstallPackBytes(workspaceRoot string, data []byte) (int, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	return installFiles(workspaceRoot, r.File)
}

func installFiles(workspaceRoot string, files []*zip.File) (int, error) {
	l := applog.WithOperation(applog.WithComponent("presets"), "install").With(slog.String("workspace", workspaceRoot))
	if strings.TrimSpace(workspaceRoot) == "" {
		return 0, errors.New("workspaceRoot is required")
	}
	dir := Dir(workspaceRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure presets dir: %w", err)
	}

	installed := 0
	for _, f := range files {
		name := f.Name
		// Skip top-level manifest file
		if name == "presetpack.manifest.txt" {
			continue
		}
		// Reject path traversal; archives may come from outside the team.
		if strings.Contains(name, "..") {
			l.Warn("skip unsafe entry", slog.String("name", name))
			continue
		}
		// Accept either paths starting with "presets/" or bare pack files; bare
		// entries are placed under presets/.
		targetRel := name
		if !strings.HasPrefix(targetRel, "presets/") {
			targetRel = filepath.ToSlash(filepath.Join("presets", targetRel))
		}
		targetPath := filepath.Join(workspaceRoot, filepath.FromSlash(targetRel))
		// If file exists, skip
		if _, err := os.Stat(targetPath); err == nil {
			l.Warn("skip existing file", slog.String("path", targetPath))
			continue
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return installed, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return installed, err
		}
		rc, err := f.Open()
		if err != nil {
			return installed, err
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return installed, err
		}
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			var p Pack
			if err := unmarshalPack(data, &p); err != nil {
				l.Warn("skip invalid pack file", slog.String("name", name), slog.Any("err", err))
				continue
			}
		}
		if err := os.WriteFile(targetPath, data, 0o644); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("preset pack installed", slog.Int("files", installed))
	return installed, nil
}
