//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"hkannostudio/internal/anno"
	"hkannostudio/internal/backend"
	"hkannostudio/internal/config"
	"hkannostudio/internal/crash"
	"hkannostudio/internal/domain"
	"hkannostudio/internal/export"
	"hkannostudio/internal/havok"
	applog "hkannostudio/internal/log"
	"hkannostudio/internal/presets"
	"hkannostudio/internal/session"
	"hkannostudio/internal/storage"
	"hkannostudio/internal/textlayout"
	"hkannostudio/internal/undo"
	"hkannostudio/internal/version"
	"hkannostudio/internal/watch"
)

// previewDebounce delays markup regeneration after an edit so fast typing
// does not spawn one tool process per keystroke.
const previewDebounce = 400 * time.Millisecond

// docView is the per-tab widget state over one editing session. The session
// owns text, model and correlation; the view only mirrors it into widgets.
type docView struct {
	sess  *session.Session
	title string
	path  string

	item    *container.TabItem
	text    *widget.Entry
	markup  *widget.Entry
	outline *widget.List
	errLine *widget.Label

	outlineItems []outlineEntry

	// Guards against feedback loops when widget text is set from code.
	applyingText   bool
	applyingMarkup bool

	previewTimer *time.Timer
	lastToolErr  string
	// lastSaved suppresses the reload prompt for our own writes.
	lastSaved time.Time
}

// outlineEntry is one row of the track outline: the display text and the
// 1-based source line it jumps to.
type outlineEntry struct {
	display string
	line    int
}

// Run starts the Fyne-based desktop annotation editor. Pass an optional
// workspace directory to open immediately.
func Run(workspaceDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	var wh *storage.WorkspaceHandle
	defer func() { crash.Recover(wh) }()

	cfg, token, cfgErr := config.Load()
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}
	tool := havok.New(cfg.Tool.Path, cfg.Tool.Timeout())
	// Every rewrite of an animation file goes through the vault first.
	tool.Backup = func(path string) error {
		if wh == nil {
			return nil
		}
		_, err := storage.VaultBackup(wh, path)
		return err
	}

	fyneApp := app.NewWithID("hkannostudio")
	w := fyneApp.NewWindow("Hkanno Studio")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")

	undoMgr := undo.NewManager(undo.Config{
		MaxBytes:       32 * 1024 * 1024, // 32 MiB in-memory cap
		MaxPerDocument: 50,
		MinInterval:    300 * time.Millisecond,
	})

	// Watch open animation files for external rewrites.
	watcher, werr := watch.New(500 * time.Millisecond)
	if werr != nil {
		l.Warn("file watcher unavailable", slog.Any("err", werr))
		watcher = nil
	} else {
		watchCtx, watchCancel := context.WithCancel(context.Background())
		watcher.Start(watchCtx)
		defer watchCancel()
		defer watcher.Stop()
	}

	// Open documents, one session per tab.
	docTabs := container.NewDocTabs()
	views := map[*container.TabItem]*docView{}
	currentView := func() *docView {
		ti := docTabs.Selected()
		if ti == nil {
			return nil
		}
		return views[ti]
	}
	viewByID := func(id string) *docView {
		for _, dv := range views {
			if dv.sess.ID() == id {
				return dv
			}
		}
		return nil
	}

	revealMarkupLine := func(dv *docView, line int) {
		if line < 1 {
			return
		}
		dv.markup.CursorRow = line - 1
		dv.markup.CursorColumn = 0
		dv.markup.Refresh()
	}

	applyMarkup := func(dv *docView) {
		dv.applyingMarkup = true
		dv.markup.SetText(dv.sess.Markup())
		dv.applyingMarkup = false
	}

	refreshDocStatus := func(dv *docView) {
		tracks, annotations, errs := dv.sess.Counts()
		line := fmt.Sprintf("%d track(s), %d annotation(s)", tracks, annotations)
		if errs > 0 {
			line += fmt.Sprintf(", %d parse error(s)", errs)
		}
		if dv.sess.Dirty() {
			line += " — unsaved"
		}
		if dv.sess.Markup() != "" && !dv.sess.CorrelationValid() {
			line += " — markup view out of date"
		}
		status.SetText(line)

		msg := ""
		if errs > 0 {
			pe := dv.sess.ParseErrors()[0]
			msg = fmt.Sprintf("Line %d: %s", pe.Line, pe.Message)
		}
		if dv.lastToolErr != "" {
			if msg != "" {
				msg += "   "
			}
			msg += "Tool: " + dv.lastToolErr
		}
		dv.errLine.SetText(msg)

		title := dv.title
		if dv.sess.Dirty() {
			title += " •"
		}
		if dv.item != nil && dv.item.Text != title {
			dv.item.Text = title
			docTabs.Refresh()
		}
	}

	rebuildOutline := func(dv *docView) {
		dv.outlineItems = dv.outlineItems[:0]
		lineNo := 0
		for _, raw := range strings.Split(dv.sess.Text(), "\n") {
			lineNo++
			ln := anno.Classify(raw)
			switch ln.Kind {
			case anno.LineHeader:
				name := "(no name)"
				if ln.Name != nil {
					name = *ln.Name
				}
				dv.outlineItems = append(dv.outlineItems, outlineEntry{display: "Track: " + name, line: lineNo})
			case anno.LineAnnotation:
				text := ""
				if ln.Text != nil {
					text = *ln.Text
				}
				text = textlayout.ElideRunes(text, 48)
				dv.outlineItems = append(dv.outlineItems, outlineEntry{display: fmt.Sprintf("  %.3f  %s", ln.Time, text), line: lineNo})
			case anno.LineInvalid:
				dv.outlineItems = append(dv.outlineItems, outlineEntry{display: fmt.Sprintf("  ⚠ %s", ln.Token), line: lineNo})
			}
		}
		dv.outline.Refresh()
	}

	// schedulePreview regenerates the markup through the native tool after a
	// quiet period. The session discards results for stale generations, so a
	// preview that loses the race leaves the installed markup alone.
	schedulePreview := func(dv *docView) {
		if dv.previewTimer != nil {
			dv.previewTimer.Stop()
		}
		dv.previewTimer = time.AfterFunc(previewDebounce, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			err := dv.sess.RefreshPreview(ctx)
			fyne.Do(func() {
				if err != nil {
					l.Error("preview failed", slog.String("doc", dv.sess.ID()), slog.Any("err", err))
					dv.lastToolErr = err.Error()
				} else {
					dv.lastToolErr = ""
					applyMarkup(dv)
				}
				refreshDocStatus(dv)
			})
		})
	}

	jumpToLine := func(dv *docView, line int) {
		if line < 1 {
			return
		}
		dv.text.CursorRow = line - 1
		dv.text.CursorColumn = 0
		dv.text.Refresh()
		w.Canvas().Focus(dv.text)
		if ml, ok := dv.sess.SyncCursor(line); ok {
			revealMarkupLine(dv, ml)
		}
	}

	syncTextFromSession := func(dv *docView) {
		dv.applyingText = true
		dv.text.SetText(dv.sess.Text())
		dv.applyingText = false
		rebuildOutline(dv)
		refreshDocStatus(dv)
		schedulePreview(dv)
	}

	buildDocView := func(sess *session.Session, title, absPath string) *docView {
		dv := &docView{sess: sess, title: title, path: absPath}
		dv.text = widget.NewMultiLineEntry()
		dv.text.Wrapping = fyne.TextWrapOff
		dv.text.TextStyle = fyne.TextStyle{Monospace: true}
		dv.text.SetPlaceHolder("# annotation text")
		dv.markup = widget.NewMultiLineEntry()
		dv.markup.Wrapping = fyne.TextWrapOff
		dv.markup.TextStyle = fyne.TextStyle{Monospace: true}
		dv.markup.SetPlaceHolder("markup preview (regenerated by the native tool)")
		dv.errLine = widget.NewLabel("")
		dv.errLine.Wrapping = fyne.TextWrapWord
		dv.outline = widget.NewList(
			func() int { return len(dv.outlineItems) },
			func() fyne.CanvasObject { return widget.NewLabel("") },
			func(i widget.ListItemID, o fyne.CanvasObject) {
				if i >= 0 && int(i) < len(dv.outlineItems) {
					o.(*widget.Label).SetText(dv.outlineItems[i].display)
				} else {
					o.(*widget.Label).SetText("")
				}
			},
		)
		dv.outline.OnSelected = func(id widget.ListItemID) {
			if id < 0 || int(id) >= len(dv.outlineItems) {
				return
			}
			jumpToLine(dv, dv.outlineItems[id].line)
			dv.outline.UnselectAll()
		}

		dv.text.OnChanged = func(s string) {
			if dv.applyingText {
				return
			}
			dv.sess.SetText(s)
			rebuildOutline(dv)
			refreshDocStatus(dv)
			schedulePreview(dv)
		}
		dv.text.OnCursorChanged = func() {
			if ml, ok := dv.sess.SyncCursor(dv.text.CursorRow + 1); ok {
				revealMarkupLine(dv, ml)
			}
		}
		// The markup pane is a live entry so selection and cursor reveal work;
		// user edits are reverted to keep it a read-only mirror.
		dv.markup.OnChanged = func(s string) {
			if dv.applyingMarkup {
				return
			}
			if s != dv.sess.Markup() {
				applyMarkup(dv)
			}
		}

		editors := container.NewHSplit(dv.text, dv.markup)
		editors.Offset = 0.5
		outlineBox := container.NewBorder(
			container.NewVBox(widget.NewLabel("Tracks"), widget.NewSeparator()),
			nil, nil, nil, dv.outline,
		)
		split := container.NewHSplit(editors, outlineBox)
		split.Offset = 0.78
		content := container.NewBorder(nil, dv.errLine, nil, nil, split)
		dv.item = container.NewTabItem(title, content)
		return dv
	}

	closeDocNow := func(dv *docView) {
		if watcher != nil && dv.path != "" {
			watcher.Unwatch(dv.path)
		}
		if dv.previewTimer != nil {
			dv.previewTimer.Stop()
		}
		dv.sess.Close()
		delete(views, dv.item)
		docTabs.Remove(dv.item)
	}

	docTabs.OnSelected = func(ti *container.TabItem) {
		if dv := views[ti]; dv != nil {
			refreshDocStatus(dv)
		}
	}
	docTabs.CloseIntercept = func(ti *container.TabItem) {
		dv := views[ti]
		if dv == nil {
			docTabs.Remove(ti)
			return
		}
		if dv.sess.Dirty() {
			dialog.NewConfirm("Close Tab", fmt.Sprintf("%s has unsaved changes. Close anyway?", dv.title), func(ok bool) {
				if ok {
					closeDocNow(dv)
				}
			}, w).Show()
			return
		}
		closeDocNow(dv)
	}

	watchDoc := func(dv *docView) {
		if watcher == nil || dv.path == "" {
			return
		}
		p := dv.path
		err := watcher.Watch(p, func(string) {
			fyne.Do(func() {
				if time.Since(dv.lastSaved) < 2*time.Second {
					return
				}
				dialog.NewConfirm("File Changed",
					fmt.Sprintf("%s changed on disk. Reload and discard unsaved edits?", filepath.Base(p)),
					func(ok bool) {
						if !ok {
							return
						}
						go func() {
							ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
							defer cancel()
							rerr := dv.sess.Reload(ctx)
							fyne.Do(func() {
								if rerr != nil {
									l.Error("reload failed", slog.String("path", p), slog.Any("err", rerr))
									dialog.ShowError(rerr, w)
									return
								}
								syncTextFromSession(dv)
								status.SetText("Reloaded " + filepath.Base(p) + " from disk.")
							})
						}()
					}, w).Show()
			})
		})
		if err != nil {
			l.Warn("watch failed", slog.String("path", p), slog.Any("err", err))
		}
	}

	openClipTab := func(c domain.Clip) {
		if wh == nil {
			return
		}
		if dv := viewByID(c.ID); dv != nil {
			docTabs.Select(dv.item)
			return
		}
		abs := storage.ClipFilePath(wh, c)
		l.Info("open clip", slog.String("clip", c.ID), slog.String("path", abs))
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		sess, loadErr := session.Open(ctx, tool, undoMgr, c.ID, abs)
		if loadErr != nil {
			// Fall back to the workspace text mirror so editing still works
			// while the native tool is unavailable.
			txt, rerr := storage.ReadClipText(wh, c)
			if rerr != nil {
				l.Error("open clip failed", slog.String("clip", c.ID), slog.Any("err", loadErr))
				dialog.ShowError(loadErr, w)
				return
			}
			l.Warn("tool load failed, using text mirror", slog.String("clip", c.ID), slog.Any("err", loadErr))
			sess = session.New(tool, undoMgr, c.ID, abs, txt)
		}
		if c.Format == "xml" {
			sess.SetFormat(havok.FormatXML)
		}
		h := wh
		sess.Persist = func(docID, text string, ts time.Time) {
			sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer scancel()
			if err := storage.SaveTextSnapshot(sctx, h, docID, text, ts); err != nil {
				l.Warn("text snapshot failed", slog.String("clip", docID), slog.Any("err", err))
			}
		}
		dv := buildDocView(sess, c.DisplayName, abs)
		if loadErr != nil {
			dv.lastToolErr = loadErr.Error()
		}
		views[dv.item] = dv
		docTabs.Append(dv.item)
		docTabs.Select(dv.item)
		syncTextFromSession(dv)
		watchDoc(dv)
		status.SetText("Opened " + c.DisplayName + ".")
	}

	// Clip list (left)
	clipDisplay := []string{}
	clipIdx := []int{}
	clipList := widget.NewList(
		func() int { return len(clipDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(clipDisplay) {
				o.(*widget.Label).SetText(clipDisplay[i])
			} else {
				o.(*widget.Label).SetText("")
			}
		},
	)
	refreshClips := func() {
		clipDisplay = clipDisplay[:0]
		clipIdx = clipIdx[:0]
		if wh == nil {
			clipList.Refresh()
			return
		}
		for i, c := range wh.Workspace.Clips {
			d := c.DisplayName
			if d == "" {
				d = c.Path
			}
			if len(c.Tags) > 0 {
				d += "  [" + strings.Join(c.Tags, ",") + "]"
			}
			clipDisplay = append(clipDisplay, d)
			clipIdx = append(clipIdx, i)
		}
		clipList.Refresh()
	}
	clipList.OnSelected = func(id widget.ListItemID) {
		if wh == nil || id < 0 || int(id) >= len(clipIdx) {
			return
		}
		openClipTab(wh.Workspace.Clips[clipIdx[id]])
		clipList.UnselectAll()
	}

	// Omnibox and search executor
	omniBox := widget.NewEntry()
	omniBox.SetPlaceHolder("Search workspace (Ctrl+K)…")

	navigateToResult := func(r storage.SearchResult) {
		if wh == nil || r.ClipID == "" {
			return
		}
		c := wh.Workspace.FindClip(r.ClipID)
		if c == nil {
			return
		}
		openClipTab(*c)
		dv := viewByID(c.ID)
		if dv == nil {
			return
		}
		ti, ai := parseAnnoIndexes(r.Path)
		if ti < 0 || ai < 0 {
			return
		}
		if ln := annotationLine(dv.sess.Text(), ti, ai); ln > 0 {
			jumpToLine(dv, ln)
		}
	}

	runSearch := func(q string) {
		qq := strings.TrimSpace(q)
		if qq == "" || wh == nil {
			return
		}
		status.SetText("Searching…")
		go func(h *storage.WorkspaceHandle, text string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			res, err := storage.Search(ctx, h.Root, storage.SearchQuery{Text: text, Limit: 200})
			fyne.Do(func() {
				if err != nil {
					l.Error("search failed", slog.Any("err", err))
					dialog.ShowError(err, w)
					status.SetText("Search failed.")
					return
				}
				status.SetText(fmt.Sprintf("%d results", len(res)))
				items := make([]string, len(res))
				for i, r := range res {
					name := "-"
					if c := h.Workspace.FindClip(r.ClipID); c != nil {
						name = c.DisplayName
					}
					sn := strings.TrimSpace(r.Snippet)
					if sn == "" {
						sn = r.Path
					}
					sn = textlayout.ElideRunes(sn, 120)
					if r.Type == "annotation" {
						items[i] = fmt.Sprintf("%s — %.3fs — %s", name, r.Time, sn)
					} else {
						items[i] = fmt.Sprintf("%s — %s — %s", name, r.Type, sn)
					}
				}
				list := widget.NewList(
					func() int { return len(items) },
					func() fyne.CanvasObject { return widget.NewLabel("") },
					func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(items[i]) },
				)
				var d dialog.Dialog
				list.OnSelected = func(id widget.ListItemID) {
					if id < 0 || int(id) >= len(res) {
						return
					}
					if d != nil {
						d.Hide()
					}
					navigateToResult(res[id])
				}
				d = dialog.NewCustom("Search Results", "Close", container.NewMax(list), w)
				d.Resize(fyne.NewSize(700, 400))
				d.Show()
			})
		}(wh, qq)
	}
	omniBox.OnSubmitted = func(s string) { runSearch(s) }

	topBar := container.NewBorder(nil, nil, nil, nil, omniBox)
	addClipBtn := widget.NewButton("Add Clip…", nil)
	scanBtn := widget.NewButton("Scan", nil)
	left := container.NewBorder(
		container.NewVBox(widget.NewLabel("Clips"), widget.NewSeparator()),
		container.NewHBox(addClipBtn, scanBtn),
		nil, nil, clipList,
	)
	editorContent := container.NewBorder(topBar, status, left, nil, docTabs)
	root := container.NewMax(editorContent)
	w.SetContent(root)

	// Forward declarations for view switchers used in callbacks defined below
	var showEditor func()
	var showDashboard func()

	// Build menus
	var closeWorkspaceItem *fyne.MenuItem
	openWorkspaceAndShow := func(dir string) {
		if err := openWorkspace(dir, &wh, w, l, status); err != nil {
			l.Error("open workspace failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		closeWorkspaceItem.Disabled = false
		refreshClips()
		addRecentWorkspace(prefs, wh.Root)
		showEditor()
	}

	newItem := fyne.NewMenuItem("New Workspace…", func() {
		l.Info("menu: new workspace")
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				l.Error("new dialog error", slog.Any("err", err))
				return
			}
			if uri == nil {
				l.Info("new workspace canceled at folder selection")
				return
			}
			abs := uri.Path()
			l.Info("new workspace folder selected", slog.String("root", abs))
			nameEntry := widget.NewEntry()
			nameEntry.SetPlaceHolder("Workspace Name")
			gameEntry := widget.NewEntry()
			gameEntry.SetPlaceHolder("e.g. Skyrim SE")
			authorEntry := widget.NewEntry()
			form := dialog.NewForm("New Workspace", "Create", "Cancel", []*widget.FormItem{
				widget.NewFormItem("Name", nameEntry),
				widget.NewFormItem("Game", gameEntry),
				widget.NewFormItem("Author", authorEntry),
			}, func(ok bool) {
				if !ok {
					l.Info("new workspace canceled at name prompt")
					return
				}
				name := strings.TrimSpace(nameEntry.Text)
				if name == "" {
					dialog.ShowInformation("New Workspace", "Please enter a workspace name.", w)
					return
				}
				l.Info("creating workspace", slog.String("name", name), slog.String("root", abs))
				ws := domain.Workspace{
					Name: name,
					Metadata: domain.Metadata{
						Game:   strings.TrimSpace(gameEntry.Text),
						Author: strings.TrimSpace(authorEntry.Text),
					},
				}
				h, ierr := storage.InitWorkspace(abs, ws)
				if ierr != nil {
					l.Error("init workspace failed", slog.Any("err", ierr))
					dialog.ShowError(ierr, w)
					return
				}
				wh = h
				w.SetTitle(fmt.Sprintf("Hkanno Studio — %s", h.Workspace.Name))
				status.SetText(fmt.Sprintf("Created workspace: %s", abs))
				closeWorkspaceItem.Disabled = false
				refreshClips()
				addRecentWorkspace(prefs, abs)
				showEditor()
			}, w)
			form.Show()
		}, w)
		fd.Show()
	})

	openItem := fyne.NewMenuItem("Open Workspace…", func() {
		l.Info("menu: open workspace")
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				l.Error("open dialog error", slog.Any("err", err))
				return
			}
			if uri == nil {
				l.Info("open workspace canceled at folder selection")
				return
			}
			openWorkspaceAndShow(uri.Path())
		}, w)
		fd.Show()
	})

	saveItem := fyne.NewMenuItem("Save", func() {
		l.Info("menu: save")
		dv := currentView()
		if dv == nil {
			dialog.ShowInformation("Save", "No clip open.", w)
			return
		}
		dv.lastSaved = time.Now()
		status.SetText("Saving…")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			err := dv.sess.Save(ctx)
			fyne.Do(func() {
				if err != nil {
					l.Error("save failed", slog.String("doc", dv.sess.ID()), slog.Any("err", err))
					dv.lastToolErr = err.Error()
					refreshDocStatus(dv)
					dialog.ShowError(err, w)
					status.SetText("Save failed.")
					return
				}
				dv.lastSaved = time.Now()
				dv.lastToolErr = ""
				// Keep the text mirror beside the animation file current.
				if wh != nil {
					if c := wh.Workspace.FindClip(dv.sess.ID()); c != nil {
						if werr := storage.WriteClipText(wh, *c, dv.sess.Text()); werr != nil {
							l.Warn("write text mirror failed", slog.Any("err", werr))
						}
					}
				}
				refreshDocStatus(dv)
				l.Info("save completed", slog.String("path", dv.path))
				status.SetText("Saved annotations into " + filepath.Base(dv.path) + ".")
			})
		}()
	})

	closeWorkspaceItem = fyne.NewMenuItem("Close Workspace", func() {
		if wh == nil {
			return
		}
		l.Info("menu: close workspace")
		open := make([]*docView, 0, len(views))
		dirty := 0
		for _, dv := range views {
			open = append(open, dv)
			if dv.sess.Dirty() {
				dirty++
			}
		}
		doClose := func() {
			for _, dv := range open {
				closeDocNow(dv)
			}
			wh = nil
			w.SetTitle("Hkanno Studio")
			status.SetText("Workspace closed.")
			refreshClips()
			closeWorkspaceItem.Disabled = true
			showDashboard()
		}
		if dirty > 0 {
			dialog.NewConfirm("Close Workspace", fmt.Sprintf("%d open clip(s) have unsaved changes. Close anyway?", dirty), func(ok bool) {
				if ok {
					doClose()
				}
			}, w).Show()
			return
		}
		doClose()
	})
	// Initially disabled when no workspace is open
	closeWorkspaceItem.Disabled = true
	// Keyboard shortcuts
	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierControl}
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}
	closeWorkspaceItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierControl}

	homeItem := fyne.NewMenuItem("Home", func() { showDashboard() })

	searchItem := fyne.NewMenuItem("Search…", func() {
		if wh == nil {
			l.Info("menu: search (no workspace)")
			dialog.ShowInformation("Search", "No workspace open.", w)
			return
		}
		w.Canvas().Focus(omniBox)
	})

	rebuildIndexItem := fyne.NewMenuItem("Rebuild Index", func() {
		if wh == nil {
			l.Info("menu: rebuild index (no workspace)")
			dialog.ShowInformation("Rebuild Index", "No workspace open.", w)
			return
		}
		l.Info("menu: rebuild index")
		status.SetText("Rebuilding index…")
		go func(h *storage.WorkspaceHandle) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			err := storage.RebuildIndex(ctx, h.Root, h.Workspace)
			fyne.Do(func() {
				if err != nil {
					l.Error("rebuild index failed", slog.Any("err", err))
					dialog.ShowError(err, w)
					status.SetText("Rebuild failed.")
				} else {
					status.SetText("Index rebuilt.")
				}
			})
		}(wh)
	})

	importPresetsItem := fyne.NewMenuItem("Import Preset Pack…", func() {
		if wh == nil {
			l.Info("menu: import preset pack (no workspace)")
			dialog.ShowInformation("Import Preset Pack", "No workspace open.", w)
			return
		}
		open := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if ur == nil {
				return
			}
			path := ur.URI().Path()
			_ = ur.Close()
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				dialog.ShowError(rerr, w)
				return
			}
			installed, ierr := presets.InstallPackBytes(wh.Root, data)
			if ierr != nil {
				dialog.ShowError(ierr, w)
				return
			}
			dialog.ShowInformation("Import Preset Pack", fmt.Sprintf("Installed %d file(s) into presets/", installed), w)
		}, w)
		open.SetFilter(fstorage.NewExtensionFileFilter([]string{".zip"}))
		open.Show()
	})

	exportPresetsItem := fyne.NewMenuItem("Export Presets as Pack…", func() {
		if wh == nil {
			l.Info("menu: export preset pack (no workspace)")
			dialog.ShowInformation("Export Preset Pack", "No workspace open.", w)
			return
		}
		save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			outPath := uc.URI().Path()
			_ = uc.Close()
			if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
				outPath += ".zip"
			}
			if err := presets.ExportPacks(wh.Root, outPath); err != nil {
				dialog.ShowError(err, w)
				return
			}
			dialog.ShowInformation("Export Preset Pack", "Exported to "+outPath, w)
		}, w)
		save.SetFileName("presets-pack.zip")
		save.SetFilter(fstorage.NewExtensionFileFilter([]string{".zip"}))
		save.Show()
	})

	// Exports read the stored clip text; warn when the editor is ahead of it.
	confirmStoredExport := func(dv *docView, then func()) {
		if !dv.sess.Dirty() {
			then()
			return
		}
		dialog.NewConfirm("Export", "The clip has unsaved changes. The export uses the last saved text. Continue?", func(ok bool) {
			if ok {
				then()
			}
		}, w).Show()
	}

	exportBundleItem := fyne.NewMenuItem("Export Clip Bundle…", func() {
		dv := currentView()
		if wh == nil || dv == nil {
			dialog.ShowInformation("Export Bundle", "No clip open.", w)
			return
		}
		l.Info("menu: export clip bundle")
		confirmStoredExport(dv, func() {
			clipID := dv.sess.ID()
			markup := dv.sess.Markup()
			save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if uc == nil {
					return
				}
				outPath := uc.URI().Path()
				_ = uc.Close()
				if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
					outPath += ".zip"
				}
				if err := export.ExportBundle(wh, clipID, markup, outPath); err != nil {
					dialog.ShowError(err, w)
					return
				}
				status.SetText("Exported bundle to " + filepath.Base(outPath) + ".")
			}, w)
			save.SetFileName(exportStem(dv.path) + ".zip")
			save.SetFilter(fstorage.NewExtensionFileFilter([]string{".zip"}))
			save.Show()
		})
	})

	exportTimelineItem := fyne.NewMenuItem("Export Timeline Image…", func() {
		dv := currentView()
		if wh == nil || dv == nil {
			dialog.ShowInformation("Export Timeline", "No clip open.", w)
			return
		}
		l.Info("menu: export timeline image")
		confirmStoredExport(dv, func() {
			clipID := dv.sess.ID()
			save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if uc == nil {
					return
				}
				outPath := uc.URI().Path()
				_ = uc.Close()
				var xerr error
				if strings.HasSuffix(strings.ToLower(outPath), ".svg") {
					xerr = export.ExportTimelineSVG(wh, clipID, outPath, export.StripOptions{})
				} else {
					if !strings.HasSuffix(strings.ToLower(outPath), ".png") {
						outPath += ".png"
					}
					xerr = export.ExportTimelinePNG(wh, clipID, outPath, export.StripOptions{})
				}
				if xerr != nil {
					dialog.ShowError(xerr, w)
					return
				}
				status.SetText("Exported timeline to " + filepath.Base(outPath) + ".")
			}, w)
			save.SetFileName(exportStem(dv.path) + ".png")
			save.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".svg"}))
			save.Show()
		})
	})

	exportSheetItem := fyne.NewMenuItem("Export Timing Sheet…", func() {
		dv := currentView()
		if wh == nil || dv == nil {
			dialog.ShowInformation("Export Timing Sheet", "No clip open.", w)
			return
		}
		l.Info("menu: export timing sheet")
		confirmStoredExport(dv, func() {
			clipID := dv.sess.ID()
			save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if uc == nil {
					return
				}
				outPath := uc.URI().Path()
				_ = uc.Close()
				if !strings.HasSuffix(strings.ToLower(outPath), ".pdf") {
					outPath += ".pdf"
				}
				if err := export.ExportTimingSheetPDF(wh, clipID, outPath, export.SheetOptions{IncludeMeta: true}); err != nil {
					dialog.ShowError(err, w)
					return
				}
				status.SetText("Exported timing sheet to " + filepath.Base(outPath) + ".")
			}, w)
			save.SetFileName(exportStem(dv.path) + ".pdf")
			save.SetFilter(fstorage.NewExtensionFileFilter([]string{".pdf"}))
			save.Show()
		})
	})

	fileMenu := fyne.NewMenu("File", homeItem, newItem, openItem, saveItem, fyne.NewMenuItemSeparator(), searchItem, rebuildIndexItem, importPresetsItem, exportPresetsItem, fyne.NewMenuItemSeparator(), exportBundleItem, exportTimelineItem, exportSheetItem, fyne.NewMenuItemSeparator(), closeWorkspaceItem)

	// Edit menu
	undoMenuItem := fyne.NewMenuItem("Undo", func() {
		dv := currentView()
		if dv == nil {
			dialog.ShowInformation("Undo", "No clip open.", w)
			return
		}
		if !dv.sess.Undo() {
			dialog.ShowInformation("Undo", "Nothing to undo.", w)
			return
		}
		syncTextFromSession(dv)
		status.SetText("Undid last edit.")
	})
	redoMenuItem := fyne.NewMenuItem("Redo", func() {
		dv := currentView()
		if dv == nil {
			dialog.ShowInformation("Redo", "No clip open.", w)
			return
		}
		if !dv.sess.Redo() {
			dialog.ShowInformation("Redo", "Nothing to redo.", w)
			return
		}
		syncTextFromSession(dv)
		status.SetText("Redid last edit.")
	})
	formatItem := fyne.NewMenuItem("Format Text", func() {
		dv := currentView()
		if dv == nil {
			dialog.ShowInformation("Format Text", "No clip open.", w)
			return
		}
		changed, _ := dv.sess.Canonicalize()
		if !changed {
			status.SetText("Text already canonical.")
			return
		}
		syncTextFromSession(dv)
		status.SetText("Text formatted canonically.")
	})

	insertPresetItem := fyne.NewMenuItem("Insert Preset Group…", func() {
		dv := currentView()
		if wh == nil || dv == nil {
			dialog.ShowInformation("Insert Preset", "Open a workspace and a clip first.", w)
			return
		}
		packs, err := presets.ListPacks(wh.Root)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if len(packs) == 0 {
			dialog.ShowInformation("Insert Preset", "No preset packs in this workspace. Import one first.", w)
			return
		}
		packNames := make([]string, 0, len(packs))
		for _, p := range packs {
			packNames = append(packNames, p.Pack.Name)
		}
		packSel := widget.NewSelect(packNames, nil)
		packSel.PlaceHolder = "Choose pack"
		groupSel := widget.NewSelect(nil, nil)
		groupSel.PlaceHolder = "Choose group"
		packSel.OnChanged = func(string) {
			i := packSel.SelectedIndex()
			if i < 0 || i >= len(packs) {
				return
			}
			names := make([]string, 0, len(packs[i].Pack.Groups))
			for _, g := range packs[i].Pack.Groups {
				names = append(names, g.Name)
			}
			groupSel.Options = names
			groupSel.ClearSelected()
			groupSel.Refresh()
		}
		trackEntry := widget.NewEntry()
		trackEntry.SetPlaceHolder("Target track (defaults to group name)")
		form := dialog.NewForm("Insert Preset Group", "Insert", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Pack", packSel),
			widget.NewFormItem("Group", groupSel),
			widget.NewFormItem("Track", trackEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			pi, gi := packSel.SelectedIndex(), groupSel.SelectedIndex()
			if pi < 0 || pi >= len(packs) || gi < 0 || gi >= len(packs[pi].Pack.Groups) {
				return
			}
			g := packs[pi].Pack.Groups[gi]
			trackName := strings.TrimSpace(trackEntry.Text)
			if trackName == "" {
				trackName = g.Name
			}
			doc := dv.sess.Document()
			n := presets.ApplyGroup(&doc, trackName, g)
			if n == 0 {
				status.SetText("Preset group has no events.")
				return
			}
			dv.sess.SetText(anno.Serialize(doc))
			syncTextFromSession(dv)
			status.SetText(fmt.Sprintf("Inserted %d annotation(s) into track %q.", n, trackName))
		}, w)
		form.Show()
	})

	editMenu := fyne.NewMenu("Edit", undoMenuItem, redoMenuItem, fyne.NewMenuItemSeparator(), formatItem, insertPresetItem)

	// Clip menu
	addClipItem := fyne.NewMenuItem("Add Clip…", func() {
		if wh == nil {
			l.Info("menu: add clip (no workspace)")
			dialog.ShowInformation("Add Clip", "No workspace open.", w)
			return
		}
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			p := rc.URI().Path()
			_ = rc.Close()
			rel, rerr := filepath.Rel(wh.Root, p)
			if rerr != nil || strings.HasPrefix(rel, "..") {
				dialog.ShowInformation("Add Clip", "Choose a file inside the workspace directory.", w)
				return
			}
			format := ""
			if strings.EqualFold(filepath.Ext(p), ".xml") {
				format = "xml"
			}
			c, aerr := storage.AddClip(wh, "", filepath.ToSlash(rel), format)
			if aerr != nil {
				dialog.ShowError(aerr, w)
				return
			}
			if serr := storage.Save(wh); serr != nil {
				dialog.ShowError(serr, w)
				return
			}
			refreshClips()
			status.SetText("Added clip: " + c.DisplayName)
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".hkx", ".xml"}))
		fd.Show()
	})

	scanClipsItem := fyne.NewMenuItem("Scan for Untracked Files", func() {
		if wh == nil {
			l.Info("menu: scan clips (no workspace)")
			dialog.ShowInformation("Scan", "No workspace open.", w)
			return
		}
		files, err := storage.UntrackedClipFiles(wh)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if len(files) == 0 {
			dialog.ShowInformation("Scan", "No untracked animation files under clips/.", w)
			return
		}
		dialog.NewConfirm("Scan", fmt.Sprintf("Track %d untracked file(s) found under clips/?", len(files)), func(ok bool) {
			if !ok {
				return
			}
			added := 0
			for _, rel := range files {
				if _, aerr := storage.AddClip(wh, "", rel, ""); aerr == nil {
					added++
				}
			}
			if serr := storage.Save(wh); serr != nil {
				dialog.ShowError(serr, w)
				return
			}
			refreshClips()
			status.SetText(fmt.Sprintf("Tracked %d new clip(s).", added))
		}, w).Show()
	})

	clipPropsItem := fyne.NewMenuItem("Clip Properties…", func() {
		dv := currentView()
		if wh == nil || dv == nil {
			dialog.ShowInformation("Clip Properties", "No clip open.", w)
			return
		}
		c := wh.Workspace.FindClip(dv.sess.ID())
		if c == nil {
			dialog.ShowInformation("Clip Properties", "The open tab is not a workspace clip.", w)
			return
		}
		nameEntry := widget.NewEntry()
		nameEntry.SetText(c.DisplayName)
		notesEntry := widget.NewMultiLineEntry()
		notesEntry.SetText(c.Notes)
		id := c.ID
		form := dialog.NewForm("Clip Properties", "Save", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Display Name", nameEntry),
			widget.NewFormItem("Notes", notesEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			newName := strings.TrimSpace(nameEntry.Text)
			if err := storage.UpdateClipMeta(wh, id, newName, notesEntry.Text); err != nil {
				dialog.ShowError(err, w)
				return
			}
			if err := storage.Save(wh); err != nil {
				dialog.ShowError(err, w)
				return
			}
			if v := viewByID(id); v != nil && newName != "" {
				v.title = newName
				refreshDocStatus(v)
			}
			refreshClips()
			status.SetText("Clip updated.")
		}, w)
		form.Show()
	})

	reloadClipItem := fyne.NewMenuItem("Reload from Disk", func() {
		dv := currentView()
		if dv == nil {
			dialog.ShowInformation("Reload", "No clip open.", w)
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			err := dv.sess.Reload(ctx)
			fyne.Do(func() {
				if err != nil {
					l.Error("reload failed", slog.String("doc", dv.sess.ID()), slog.Any("err", err))
					dialog.ShowError(err, w)
					return
				}
				syncTextFromSession(dv)
				status.SetText("Reloaded " + filepath.Base(dv.path) + " from disk.")
			})
		}()
	})

	removeClipItem := fyne.NewMenuItem("Remove Clip…", func() {
		dv := currentView()
		if wh == nil || dv == nil {
			dialog.ShowInformation("Remove Clip", "No clip open.", w)
			return
		}
		c := wh.Workspace.FindClip(dv.sess.ID())
		if c == nil {
			dialog.ShowInformation("Remove Clip", "The open tab is not a workspace clip.", w)
			return
		}
		name, id := c.DisplayName, c.ID
		dialog.NewConfirm("Remove Clip", fmt.Sprintf("Remove %q from the workspace? Files on disk stay in place.", name), func(ok bool) {
			if !ok {
				return
			}
			if err := storage.RemoveClip(wh, id); err != nil {
				dialog.ShowError(err, w)
				return
			}
			if err := storage.Save(wh); err != nil {
				dialog.ShowError(err, w)
				return
			}
			if v := viewByID(id); v != nil {
				closeDocNow(v)
			}
			refreshClips()
			status.SetText("Clip removed from workspace.")
		}, w).Show()
	})

	clipMenu := fyne.NewMenu("Clip", addClipItem, scanClipsItem, fyne.NewMenuItemSeparator(), clipPropsItem, reloadClipItem, removeClipItem)

	addClipBtn.OnTapped = func() { addClipItem.Action() }
	scanBtn.OnTapped = func() { scanClipsItem.Action() }

	// Library menu (team preset packs over the companion service)
	browsePacksItem := fyne.NewMenuItem("Browse Team Packs…", func() {
		l.Info("menu: browse team packs")
		if wh == nil {
			dialog.ShowInformation("Team Library", "No workspace open.", w)
			return
		}
		if !cfg.General.EnableLibrary {
			dialog.ShowInformation("Team Library", "The team library is disabled. Set enable_library: true in the config or HKS_ENABLE_LIBRARY=1.", w)
			return
		}
		client := backend.NewClientWithTimeout(cfg.Library.BaseURL, token,
			time.Duration(cfg.Library.TimeoutMs)*time.Millisecond, cfg.Library.TLSInsecure)
		root := wh.Root
		status.SetText("Loading team packs…")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			packs, err := client.ListPacks(ctx)
			fyne.Do(func() {
				if err != nil {
					l.Error("list team packs failed", slog.Any("err", err))
					status.SetText("Team library unavailable.")
					dialog.ShowError(err, w)
					return
				}
				status.SetText(fmt.Sprintf("%d team pack(s).", len(packs)))
				items := make([]string, len(packs))
				for i, p := range packs {
					author := p.Author
					if author == "" {
						author = "unknown"
					}
					items[i] = fmt.Sprintf("%s v%d — %s (%s)", p.Name, p.Version, author, p.UpdatedAt.Format("2006-01-02"))
				}
				selected := -1
				list := widget.NewList(
					func() int { return len(items) },
					func() fyne.CanvasObject { return widget.NewLabel("") },
					func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(items[i]) },
				)
				list.OnSelected = func(id widget.ListItemID) { selected = int(id) }
				d := dialog.NewCustomConfirm("Team Preset Packs", "Install", "Close", container.NewMax(list), func(ok bool) {
					if !ok || selected < 0 || selected >= len(packs) {
						return
					}
					p := packs[selected]
					status.SetText("Installing " + p.Name + "…")
					go func() {
						ictx, icancel := context.WithTimeout(context.Background(), 2*time.Minute)
						defer icancel()
						n, ierr := client.InstallPack(ictx, p.ID, root)
						fyne.Do(func() {
							if ierr != nil {
								l.Error("install team pack failed", slog.Int64("pack", p.ID), slog.Any("err", ierr))
								dialog.ShowError(ierr, w)
								status.SetText("Install failed.")
								return
							}
							status.SetText(fmt.Sprintf("Installed %d preset file(s) from %s.", n, p.Name))
						})
					}()
				}, w)
				d.Resize(fyne.NewSize(520, 360))
				d.Show()
			})
		}()
	})

	setTokenItem := fyne.NewMenuItem("Set Access Token…", func() {
		l.Info("menu: set library token")
		tokEntry := widget.NewPasswordEntry()
		form := dialog.NewForm("Library Access Token", "Save", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Token", tokEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			t := strings.TrimSpace(tokEntry.Text)
			if t == "" {
				return
			}
			if err := config.Save(cfg, t); err != nil {
				l.Error("store token failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			token = t
			status.SetText("Library token stored in the OS keychain.")
		}, w)
		form.Show()
	})

	libraryMenu := fyne.NewMenu("Library", browsePacksItem, setTokenItem)

	aboutItem := fyne.NewMenuItem("About Hkanno Studio", func() {
		l.Info("menu: about")
		exe, _ := os.Executable()
		cwd, _ := os.Getwd()
		info := fmt.Sprintf("Hkanno Studio\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nWorking Dir: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, cwd)
		dialog.ShowInformation("Installation Environment", info, w)
	})
	copyrightItem := fyne.NewMenuItem("Copyright…", func() {
		l.Info("menu: copyright")
		currentYear := time.Now().Year()
		msg := fmt.Sprintf("Hkanno Studio\nCopyright © 2024-%d The Hkanno Studio Authors\n\nLicensed under the Apache License, Version 2.0.\nSee the LICENSE file for details.", currentYear)
		dialog.ShowInformation("Copyright", msg, w)
	})
	aboutMenu := fyne.NewMenu("About", aboutItem, copyrightItem)

	// Dashboard and Home support
	showEditor = func() {
		root.Objects = []fyne.CanvasObject{editorContent}
		root.Refresh()
	}
	buildDashboard := func() fyne.CanvasObject {
		title := widget.NewLabel("Workspace Dashboard")
		title.TextStyle = fyne.TextStyle{Bold: true}
		title.Alignment = fyne.TextAlignLeading

		newBtn := widget.NewButton("New Workspace…", func() { newItem.Action() })
		openBtn := widget.NewButton("Open Workspace…", func() { openItem.Action() })

		recent := loadRecentWorkspaces(prefs)
		recList := widget.NewList(
			func() int { return len(recent) },
			func() fyne.CanvasObject { return widget.NewLabel("") },
			func(i widget.ListItemID, o fyne.CanvasObject) {
				if i >= 0 && int(i) < len(recent) {
					o.(*widget.Label).SetText(recent[i])
				} else {
					o.(*widget.Label).SetText("")
				}
			},
		)
		recList.OnSelected = func(id widget.ListItemID) {
			if id < 0 || int(id) >= len(recent) {
				return
			}
			openWorkspaceAndShow(recent[id])
		}

		header := widget.NewLabel("Recent Workspaces")
		return container.NewBorder(
			container.NewVBox(title, widget.NewSeparator(), container.NewHBox(newBtn, openBtn)),
			nil, nil, nil,
			container.NewBorder(header, nil, nil, nil, recList),
		)
	}
	showDashboard = func() {
		// Rebuilt every time so the recent list stays current.
		root.Objects = []fyne.CanvasObject{buildDashboard()}
		root.Refresh()
	}

	// Shortcut: focus omnibox with Ctrl+K
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyK, Modifier: fyne.KeyModifierControl}, func(sc fyne.Shortcut) {
		w.Canvas().Focus(omniBox)
	})

	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, clipMenu, libraryMenu, aboutMenu))

	// Persist preferences on close; warn about unsaved edits first.
	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		dirty := 0
		for _, dv := range views {
			if dv.sess.Dirty() {
				dirty++
			}
		}
		if dirty > 0 {
			dialog.NewConfirm("Quit", fmt.Sprintf("%d open clip(s) have unsaved changes. Quit anyway?", dirty), func(ok bool) {
				if ok {
					w.Close()
				}
			}, w).Show()
			return
		}
		w.Close()
	})

	// Try to open a workspace if provided
	if workspaceDir != "" {
		openWorkspaceAndShow(workspaceDir)
	}

	if wh == nil {
		showDashboard()
	}

	w.ShowAndRun()
	return nil
}

func openWorkspace(dir string, wh **storage.WorkspaceHandle, w fyne.Window, l *slog.Logger, status *widget.Label) error {
	abs, _ := filepath.Abs(dir)
	l.Info("open workspace", slog.String("root", abs))
	h, err := storage.Open(abs)
	if err != nil {
		return err
	}
	*wh = h
	w.SetTitle(fmt.Sprintf("Hkanno Studio — %s", h.Workspace.Name))
	status.SetText(fmt.Sprintf("Opened workspace: %s", abs))
	return nil
}

// exportStem is the suggested output file stem for a clip path.
func exportStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Recent workspace persistence helpers for dashboard
const recentPrefsKey = "recent.workspaces"
const recentMax = 10

func loadRecentWorkspaces(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	if items == nil {
		items = []string{}
	}
	// Filter out non-existing paths
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentWorkspaces(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentWorkspace(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentWorkspaces(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentWorkspaces(p, out)
}
