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
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// ClipInfo is the clip metadata read out of the tagfile markup.
type ClipInfo struct {
	Ptr            string  // object name of the animation holding the tracks, e.g. "#0053"
	Skeleton       string  // skeleton name, "" when the file carries none
	Duration       float64 // seconds
	NumTracks      int
	NumAnnotations int
}

// The markup schema is owned by the native tool. The animation object is
// located structurally (whatever hkobject carries annotationTracks) rather
// than by class name, so compressed and interleaved animations both resolve.
var (
	exprAnimation = xpath.MustCompile(`//hkobject[hkparam[@name='annotationTracks']]`)
	exprDuration  = xpath.MustCompile(`hkparam[@name='duration']`)
	exprTracks    = xpath.MustCompile(`//hkparam[@name='trackName']`)
	exprTimes     = xpath.MustCompile(`//hkparam[@name='time']`)
	exprSkeleton  = xpath.MustCompile(`//hkobject[@class='hkaSkeleton']/hkparam[@name='name']`)
)

// parseMarkupInfo extracts ClipInfo from tagfile markup bytes.
func parseMarkupInfo(markup []byte) (ClipInfo, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(markup))
	if err != nil {
		return ClipInfo{}, fmt.Errorf("parse markup: %w", err)
	}
	var info ClipInfo
	if n := xmlquery.QuerySelector(doc, exprAnimation); n != nil {
		info.Ptr = n.SelectAttr("name")
		if d := xmlquery.QuerySelector(n, exprDuration); d != nil {
			if v, err := strconv.ParseFloat(strings.TrimSpace(d.InnerText()), 64); err == nil {
				info.Duration = v
			}
		}
	}
	info.NumTracks = len(xmlquery.QuerySelectorAll(doc, exprTracks))
	info.NumAnnotations = len(xmlquery.QuerySelectorAll(doc, exprTimes))
	if s := xmlquery.QuerySelector(doc, exprSkeleton); s != nil {
		info.Skeleton = strings.TrimSpace(s.InnerText())
	}
	return info, nil
}
