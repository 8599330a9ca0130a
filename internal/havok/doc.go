/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package havok wraps the native hkanno core tool behind a small exec client.
// The tool owns the binary .hkx container entirely: this package only shuttles
// annotation text and markup across the process boundary and never interprets
// container bytes itself. Every call spawns one short-lived process; there is
// no retry policy and no persistent state, so a Tool value is safe to share.
package havok
