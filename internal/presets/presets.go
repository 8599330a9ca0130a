/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package presets manages reusable annotation presets: named groups of common
// event texts with relative default times, stored as YAML packs under the
// workspace presets directory. Packs travel as zip archives and can also come
// from the team library.
package presets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"hkannostudio/internal/anno"
)

const presetsDir = "presets"

// Event is one preset annotation. At is the default position as a fraction of
// the clip duration (0 = start, 1 = end).
type Event struct {
	Text string  `yaml:"text"`
	At   float64 `yaml:"at"`
}

// Group is a named set of events inserted together, e.g. a footstep cycle.
type Group struct {
	Name   string  `yaml:"name"`
	Events []Event `yaml:"events"`
}

// Pack is one preset pack file.
type Pack struct {
	Name        string  `yaml:"name"`
	Author      string  `yaml:"author,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Groups      []Group `yaml:"groups"`
}

// Validate checks the structural rules a pack must satisfy before use.
func (p Pack) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("pack name is required")
	}
	for gi, g := range p.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("group %d: name is required", gi)
		}
		for ei, e := range g.Events {
			if strings.TrimSpace(e.Text) == "" {
				return fmt.Errorf("group %q event %d: text is required", g.Name, ei)
			}
			if e.At < 0 || e.At > 1 {
				return fmt.Errorf("group %q event %d: at %v outside [0,1]", g.Name, ei, e.At)
			}
		}
	}
	return nil
}

// LoadPack reads and validates one pack file.
func LoadPack(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("read pack: %w", err)
	}
	var p Pack
	if err := unmarshalPack(data, &p); err != nil {
		return Pack{}, fmt.Errorf("pack %s: %w", filepath.Base(path), err)
	}
	return p, nil
}

func unmarshalPack(data []byte, p *Pack) error {
	if err := yaml.Unmarshal(data, p); err != nil {
		return err
	}
	return p.Validate()
}

// SavePack writes a pack file, creating parent directories.
func SavePack(path string, p Pack) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pack: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure pack dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Dir returns the presets directory of a workspace.
func Dir(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, presetsDir)
}

// ListPacks returns the loadable packs in the workspace presets directory,
// sorted by file name. Unreadable or invalid files are skipped.
func ListPacks(workspaceRoot string) ([]struct {
	Path string
	Pack Pack
}, error) {
	dir := Dir(workspaceRoot)
	ents, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets dir: %w", err)
	}
	var out []struct {
		Path string
		Pack Pack
	}
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		path := filepath.Join(dir, name)
		p, err := LoadPack(path)
		if err != nil {
			continue
		}
		out = append(out, struct {
			Path string
			Pack Pack
		}{Path: path, Pack: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Materialize turns a group into concrete annotations over the given clip
// duration, in event order. Out-of-range fractions clamp to the clip bounds.
func Materialize(g Group, duration float64) []anno.Annotation {
	out := make([]anno.Annotation, 0, len(g.Events))
	for _, e := range g.Events {
		at := e.At
		if at < 0 {
			at = 0
		}
		if at > 1 {
			at = 1
		}
		text := e.Text
		out = append(out, anno.Annotation{Time: at * duration, Text: &text})
	}
	return out
}

// ApplyGroup inserts the group's events into the named track of the document,
// keeping annotations in ascending time order. The track is created at the end
// of the document when absent. Returns the number of annotations added.
func ApplyGroup(h *anno.Hkanno, trackName string, g Group) int {
	if h == nil {
		return 0
	}
	anns := Materialize(g, h.Duration)
	if len(anns) == 0 {
		return 0
	}
	idx := -1
	for i := range h.Tracks {
		if h.Tracks[i].Name != nil && *h.Tracks[i].Name == trackName {
			idx = i
			break
		}
	}
	if idx < 0 {
		name := trackName
		h.Tracks = append(h.Tracks, anno.Track{Name: &name})
		idx = len(h.Tracks) - 1
	}
	tr := &h.Tracks[idx]
	tr.Annotations = append(tr.Annotations, anns...)
	sort.SliceStable(tr.Annotations, func(i, j int) bool {
		return tr.Annotations[i].Time < tr.Annotations[j].Time
	})
	return len(anns)
}
