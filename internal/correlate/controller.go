/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package correlate

import (
	"log/slog"
	"sync"

	"hkannostudio/internal/anno"
	applog "hkannostudio/internal/log"
)

// Controller drives one-directional cursor sync: cursor moves in the primary
// view reveal the matching line in the secondary view, never the reverse.
// Every edit bumps a generation; map rebuilds arrive asynchronously (after
// the markup has been regenerated) and are installed only if their generation
// is still current, so a slow preview response can never overwrite newer
// state. When the installed maps show diverged counts, the controller keeps
// them for inspection but answers every lookup with a miss.
//
// All methods are safe for concurrent use; preview completions typically land
// on a different goroutine than cursor events.

type Controller struct {
	mu     sync.Mutex
	gen    uint64
	maps   Maps
	valid  bool
	reveal func(line int)
	log    *slog.Logger
}

// New returns a Controller that calls reveal with the 1-based secondary line
// to show. reveal may be nil; lookups then still work via Sync's return.
func New(reveal func(line int)) *Controller {
	return &Controller{reveal: reveal, log: applog.WithComponent("correlate")}
}

// Bump invalidates pending rebuilds: it advances the generation and returns
// the value a subsequent Install for this edit must present. Call it once per
// model edit, before kicking off markup regeneration.
func (c *Controller) Bump() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}

// Generation returns the current generation.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Install rebuilds the maps from the given texts, provided gen is still the
// current generation. A stale generation means another edit happened while
// the markup was being regenerated; the result is discarded and Install
// returns false. On count divergence the maps are installed but lookups are
// disabled for this document rather than risking a silent mispairing.
func (c *Controller) Install(gen uint64, primary, secondary string) bool {
	m := Build(primary, secondary)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("discarding stale correlation", slog.Uint64("gen", gen), slog.Uint64("current", c.gen))
		return false
	}
	c.maps = m
	c.valid = !m.Diverged()
	if !c.valid {
		c.log.Warn("category counts diverged; correlation disabled for this document",
			slog.Int("primary_headers", m.Counts.PrimaryHeaders),
			slog.Int("secondary_headers", m.Counts.SecondaryHeaders),
			slog.Int("primary_annotations", m.Counts.PrimaryAnnotations),
			slog.Int("secondary_annotations", m.Counts.SecondaryAnnotations))
	}
	return true
}

// Sync handles a cursor move onto the given 1-based primary line. The line is
// classified with the parser's classifier; header and annotation lines are
// resolved through their map and the secondary target revealed. Everything
// else — comments, blanks, invalid lines, unmapped surplus lines, degraded or
// never-installed maps — is a silent miss.
func (c *Controller) Sync(lineNo int, line string) (int, bool) {
	c.mu.Lock()
	maps, valid := c.maps, c.valid
	c.mu.Unlock()
	if !valid {
		return 0, false
	}

	var target int
	var ok bool
	switch anno.Classify(line).Kind {
	case anno.LineHeader:
		target, ok = maps.LookupHeader(lineNo)
	case anno.LineAnnotation:
		target, ok = maps.LookupAnnotation(lineNo)
	default:
		return 0, false
	}
	if !ok {
		return 0, false
	}
	if c.reveal != nil {
		c.reveal(target)
	}
	return target, true
}

// Maps returns a copy of the installed maps, mainly for status displays.
func (c *Controller) Maps() Maps {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maps
}

// Valid reports whether lookups are currently enabled.
func (c *Controller) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// Reset drops all correlation state, e.g. when the document is closed or the
// markup could not be produced at all.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maps = Maps{}
	c.valid = false
}
