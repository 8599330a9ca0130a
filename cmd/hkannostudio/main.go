/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hkannostudio/internal/backend"
	"hkannostudio/internal/crash"
	"hkannostudio/internal/domain"
	applog "hkannostudio/internal/log"
	"hkannostudio/internal/storage"
	"hkannostudio/internal/telemetry"
	"hkannostudio/internal/ui"
	"hkannostudio/internal/version"
)

func usage() {
	fmt.Println("Hkanno Studio — animation annotation workbench")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hkannostudio version|-v|--version          Show version")
	fmt.Println("  hkannostudio init <dir> <name>             Create a new workspace at <dir> with name <name>")
	fmt.Println("  hkannostudio open <dir>                    Open workspace at <dir> and print summary")
	fmt.Println("  hkannostudio save <dir>                    Re-save workspace manifest at <dir> (creates backup)")
	fmt.Println("  hkannostudio ui [<dir>]                    Launch desktop UI (build with -tags fyne for full UI)")
	fmt.Println("  hkannostudio serve                         Run the team preset library service")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var wh *storage.WorkspaceHandle
	defer func() { crash.Recover(wh) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Hkanno Studio — animation annotation workbench")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			name := args[3]
			abs, _ := filepath.Abs(dir)
			l.Info("init workspace", slog.String("root", abs), slog.String("name", name))
			ws := domain.Workspace{Name: name, Clips: []domain.Clip{}}
			h, err := storage.InitWorkspace(abs, ws)
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wh = h
			fmt.Println("Created workspace at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			abs, _ := filepath.Abs(dir)
			l.Info("open workspace", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wh = h
			fmt.Printf("Opened workspace: %s\n", h.Workspace.Name)
			fmt.Printf("Clips: %d\n", len(h.Workspace.Clips))
			if h.Workspace.Metadata.Game != "" {
				fmt.Printf("Game: %s\n", h.Workspace.Metadata.Game)
			}
			fmt.Println("Root:", h.Root)
			return
		case "save":
			if len(args) < 3 {
				fmt.Println("save requires <dir>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			abs, _ := filepath.Abs(dir)
			l.Info("save workspace", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			wh = h
			if err := storage.Save(h); err != nil {
				l.Error("save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Saved workspace manifest and created a backup of the previous one (if any).")
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			telemetry.Event("app_start", map[string]any{"command": "ui"})
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		case "serve":
			telemetry.Event("app_start", map[string]any{"command": "serve"})
			if err := backend.Start(); err != nil {
				l.Error("serve failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
