/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package anno

import (
	"bufio"
	"strconv"
	"strings"
)

// ScanHeader pulls numOriginalFrames and duration out of the "# key: value"
// comment lines that Serialize and the native tool's dump output both write
// ahead of the annotation body. Scanning stops at the first non-comment line;
// file-level metadata always precedes the first track. Missing or malformed
// keys leave the zero values.
func ScanHeader(text string) (frames int, duration float64) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			break
		}
		key, val, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "numOriginalFrames":
			if n, err := strconv.Atoi(val); err == nil {
				frames = n
			}
		case "duration":
			if d, err := strconv.ParseFloat(val, 64); err == nil {
				duration = d
			}
		}
	}
	return frames, duration
}
