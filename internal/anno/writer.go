/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package anno

import (
	"fmt"
	"strings"
)

// Serialize renders the canonical text form of a document. The layout is
// deterministic: three header comments, then per track a separating blank
// line, the header line, an informational annotation-count comment, and one
// line per annotation with the time at six decimals. The count comments are
// ignored on the next parse.
//
// The guarantee is semantic, not textual: parsing the output yields the same
// tracks, names and annotation sequences as the input model. Spacing and
// comments of whatever text the model came from are not reproduced.
func Serialize(h Hkanno) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# numOriginalFrames: %d\n", h.NumOriginalFrames)
	fmt.Fprintf(&b, "# duration: %.6f\n", h.Duration)
	fmt.Fprintf(&b, "# numAnnotationTracks: %d\n", len(h.Tracks))
	for _, tr := range h.Tracks {
		b.WriteString("\n")
		fmt.Fprintf(&b, "trackName: %s\n", EncodeOpt(tr.Name))
		fmt.Fprintf(&b, "# numAnnotations: %d\n", len(tr.Annotations))
		for _, a := range tr.Annotations {
			text := EncodeOpt(a.Text)
			if text == "" {
				fmt.Fprintf(&b, "%.6f\n", a.Time)
				continue
			}
			fmt.Fprintf(&b, "%.6f %s\n", a.Time, text)
		}
	}
	return b.String()
}
