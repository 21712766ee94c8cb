//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"nasgame/internal/catalog"
	"nasgame/internal/config"
	"nasgame/internal/cover"
	"nasgame/internal/crash"
	"nasgame/internal/domain"
	"nasgame/internal/export"
	applog "nasgame/internal/log"
	"nasgame/internal/session"
	"nasgame/internal/version"
)

// Run starts the desktop UI. dataDir overrides the configured data
// directory when non-empty.
func Run(dataDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if strings.TrimSpace(dataDir) != "" {
		cfg.Library.DataDir = dataDir
	}
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	sess, err := session.Open(cfg)
	if err != nil {
		return err
	}
	defer sess.Close()
	defer crash.Recover(&crash.Session{Layout: &sess.Layout, Store: sess.Store})

	fyneApp := app.NewWithID("nasgame")
	applyTheme(fyneApp, cfg.General.Theme)
	w := fyneApp.NewWindow("NAS Game")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	w.Resize(fyne.NewSize(float32(max(winW, 800)), float32(max(winH, 600))))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	status := widget.NewLabel("Ready")
	if sess.LoadErr != nil && !errors.Is(sess.LoadErr, catalog.ErrNotFound) {
		status.SetText("Library file could not be read; starting with an empty library.")
	}

	lib := newLibraryView(ctx, sess, status)
	overview := newOverviewView(sess)
	shots := newScreenshotsView(sess)
	settings := newSettingsView(ctx, w, sess, status, lib)

	cancelSub := sess.Store.Subscribe(func(domain.Catalog) {
		fyne.Do(func() {
			lib.refresh()
			overview.refresh()
		})
	})
	defer cancelSub()
	lib.refresh()
	overview.refresh()

	tabs := container.NewAppTabs(
		container.NewTabItemWithIcon("Overview", theme.HomeIcon(), overview.content),
		container.NewTabItemWithIcon("Library", theme.GridIcon(), lib.content),
		container.NewTabItemWithIcon("Screenshots", theme.MediaPhotoIcon(), shots.content),
		container.NewTabItemWithIcon("Settings", theme.SettingsIcon(), settings.content),
	)
	tabs.OnSelected = func(t *container.TabItem) {
		if t.Text == "Screenshots" {
			shots.refresh()
		}
	}
	tabs.SelectIndex(1)
	w.SetContent(container.NewBorder(nil, status, nil, nil, tabs))

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		cancel()
		lib.close()
	})
	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

func applyTheme(a fyne.App, name string) {
	switch name {
	case "dark":
		a.Settings().SetTheme(theme.DarkTheme())
	case "light":
		a.Settings().SetTheme(theme.LightTheme())
	}
}

// gameCard is one recycled grid cell. Its slot owns the cover it shows.
type gameCard struct {
	card  *widget.Card
	img   *canvas.Image
	slot  *cover.Slot
	title string
	hint  string
}

type libraryView struct {
	ctx     context.Context
	sess    *session.Session
	status  *widget.Label
	content fyne.CanvasObject

	search *widget.Entry
	state  *widget.Select
	stat   *widget.Select
	order  *widget.Select
	grid   *widget.GridWrap
	count  *widget.Label

	shown domain.Catalog
	cards map[fyne.CanvasObject]*gameCard
	w, h  float32
}

func newLibraryView(ctx context.Context, sess *session.Session, status *widget.Label) *libraryView {
	v := &libraryView{ctx: ctx, sess: sess, status: status, cards: map[fyne.CanvasObject]*gameCard{}}
	v.w, v.h = cardSize(sess.Config.Library.CardSize)

	v.search = widget.NewEntry()
	v.search.SetPlaceHolder("Search games")
	v.state = widget.NewSelect(stateOptions(), nil)
	v.state.SetSelected(anyOption)
	v.stat = widget.NewSelect(statusOptions(), nil)
	v.stat.SetSelected(anyOption)
	v.order = widget.NewSelect(sortOptions(), nil)
	v.order.SetSelected(sortLabelFor(sess.Config.Library.SortBy))
	v.count = widget.NewLabel("")

	v.grid = widget.NewGridWrap(
		func() int { return len(v.shown) },
		v.newCard,
		func(id widget.GridWrapItemID, o fyne.CanvasObject) {
			if id < 0 || id >= len(v.shown) {
				return
			}
			v.bind(o, v.shown[id])
		},
	)

	// hooked up last so the initial SetSelected calls do not refresh early
	v.search.OnChanged = func(string) { v.refresh() }
	v.state.OnChanged = func(string) { v.refresh() }
	v.stat.OnChanged = func(string) { v.refresh() }
	v.order.OnChanged = func(string) { v.refresh() }

	toolbar := container.NewBorder(nil, nil, nil,
		container.NewHBox(v.state, v.stat, v.order),
		v.search)
	v.content = container.NewBorder(toolbar, v.count, nil, nil, v.grid)
	return v
}

func (v *libraryView) newCard() fyne.CanvasObject {
	img := canvas.NewImageFromImage(cover.FallbackImage())
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(v.w, v.h))
	c := widget.NewCard("", "", img)
	v.cards[c] = &gameCard{card: c, img: img, slot: &cover.Slot{}}
	return c
}

// bind points a recycled card at g and starts its cover resolution. The
// fallback stays visible until the cover arrives.
func (v *libraryView) bind(o fyne.CanvasObject, g domain.Game) {
	gc, ok := v.cards[o]
	if !ok {
		return
	}
	gc.card.SetSubTitle(cardSubtitle(g))
	if gc.title == g.Title && gc.hint == g.Cover {
		return
	}
	gc.title, gc.hint = g.Title, g.Cover
	gc.card.SetTitle(g.Title)
	gc.img.Image = cover.FallbackImage()
	gc.img.Refresh()

	t := gc.slot.Begin()
	go cover.Bind(v.ctx, gc.slot, t, v.sess.Covers, g, func(_ *cover.Handle, img image.Image) {
		fyne.Do(func() {
			gc.img.Image = img
			gc.img.Refresh()
		})
	})
}

func (v *libraryView) query() catalog.Query {
	return queryFrom(v.search.Text, v.state.Selected, v.stat.Selected, v.order.Selected)
}

func (v *libraryView) refresh() {
	all := v.sess.Store.Current()
	q := v.query()
	v.shown = catalog.Filter(all, q)
	v.count.SetText(resultLine(len(v.shown), len(all), q))
	v.grid.Refresh()
}

func (v *libraryView) resize(setting int) {
	v.w, v.h = cardSize(setting)
	for _, gc := range v.cards {
		gc.img.SetMinSize(fyne.NewSize(v.w, v.h))
	}
	v.grid.Refresh()
}

// close unmounts every card; late cover results are dropped.
func (v *libraryView) close() {
	for _, gc := range v.cards {
		gc.slot.Close()
	}
}

type overviewView struct {
	sess    *session.Session
	lines   *widget.Label
	content fyne.CanvasObject
}

func newOverviewView(sess *session.Session) *overviewView {
	v := &overviewView{sess: sess, lines: widget.NewLabel("")}
	header := widget.NewLabelWithStyle("Library overview", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	v.content = container.NewVBox(header, widget.NewSeparator(), v.lines)
	return v
}

func (v *overviewView) refresh() {
	v.lines.SetText(strings.Join(overviewLines(catalog.Summarize(v.sess.Store.Current())), "\n"))
}

type screenshotsView struct {
	sess    *session.Session
	files   []string
	grid    *widget.GridWrap
	empty   *widget.Label
	content fyne.CanvasObject
}

func newScreenshotsView(sess *session.Session) *screenshotsView {
	v := &screenshotsView{sess: sess, empty: widget.NewLabel("")}
	v.grid = widget.NewGridWrap(
		func() int { return len(v.files) },
		func() fyne.CanvasObject {
			img := canvas.NewImageFromResource(nil)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(320, 180))
			return img
		},
		func(id widget.GridWrapItemID, o fyne.CanvasObject) {
			img := o.(*canvas.Image)
			img.File = v.files[id]
			img.Refresh()
		},
	)
	v.content = container.NewBorder(nil, v.empty, nil, nil, v.grid)
	return v
}

func (v *screenshotsView) refresh() {
	files, err := v.sess.Screenshots()
	if err != nil {
		applog.WithComponent("ui").Warn("list screenshots failed", slog.Any("err", err))
	}
	v.files = files
	if len(files) == 0 {
		v.empty.SetText("No screenshots in " + v.sess.Layout.ScreenshotsDir())
	} else {
		v.empty.SetText(fmt.Sprintf("%d screenshots", len(files)))
	}
	v.grid.Refresh()
}

type settingsView struct {
	content fyne.CanvasObject
}

func newSettingsView(ctx context.Context, w fyne.Window, sess *session.Session, status *widget.Label, lib *libraryView) *settingsView {
	l := applog.WithComponent("ui")
	cfg := &sess.Config

	label := func(text, key string) string {
		if env, ok := config.EnvOverrideFor(key); ok {
			return fmt.Sprintf("%s (overridden by %s)", text, env)
		}
		return text
	}

	dataDir := widget.NewLabel(sess.Layout.Root)
	themeSel := widget.NewSelect([]string{"system", "light", "dark"}, nil)
	themeSel.SetSelected(cfg.General.Theme)
	sortSel := widget.NewSelect(sortOptions(), nil)
	sortSel.SetSelected(sortLabelFor(cfg.Library.SortBy))
	sizeSlider := widget.NewSlider(1, 100)
	sizeSlider.SetValue(float64(cfg.Library.CardSize))
	sizeSlider.OnChanged = func(f float64) { lib.resize(int(f)) }

	form := widget.NewForm(
		widget.NewFormItem(label("Data directory", "library.data_dir"), dataDir),
		widget.NewFormItem(label("Theme", "general.theme"), themeSel),
		widget.NewFormItem("Default sort", sortSel),
		widget.NewFormItem("Card size", sizeSlider),
	)
	saveCfg := widget.NewButton("Save settings", func() {
		cfg.General.Theme = themeSel.Selected
		cfg.Library.SortBy = queryFrom("", anyOption, anyOption, sortSel.Selected).SortBy
		cfg.Library.CardSize = int(sizeSlider.Value)
		if err := config.Save(*cfg); err != nil {
			dialog.ShowError(err, w)
			return
		}
		applyTheme(fyne.CurrentApp(), cfg.General.Theme)
		status.SetText("Settings saved.")
	})

	persist := widget.NewButton("Save library", func() {
		if err := sess.Persist(); err != nil {
			l.Error("persist failed", slog.Any("err", err))
			dialog.ShowError(fmt.Errorf("Saving the library failed: %w", err), w)
			return
		}
		status.SetText("Library saved.")
	})
	importBtn := widget.NewButton("Import…", func() {
		dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				return
			}
			path := r.URI().Path()
			_ = r.Close()
			n, err := sess.Import(path)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText(fmt.Sprintf("Imported %d games.", n))
		}, w).Show()
	})
	exportBtn := widget.NewButton("Export…", func() {
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			if err := sess.Export(path); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported to " + path)
		}, w)
		d.SetFileName("games.json")
		d.Show()
	})
	pdfBtn := widget.NewButton("Export PDF…", func() {
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			games := sess.Store.Current()
			go func() {
				err := export.ExportCatalogPDF(ctx, games, path, export.PDFOptions{Covers: sess.Covers})
				fyne.Do(func() {
					if err != nil {
						dialog.ShowError(err, w)
						return
					}
					status.SetText("PDF written to " + path)
				})
			}()
		}, w)
		d.SetFileName("library.pdf")
		d.Show()
	})
	restoreBtn := widget.NewButton("Restore last backup", func() {
		dialog.ShowConfirm("Restore", "Replace the library with the newest backup?", func(ok bool) {
			if !ok {
				return
			}
			from, err := sess.Restore()
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Restored " + from)
		}, w)
	})
	clearCache := widget.NewButton("Clear cover cache", func() {
		if err := sess.ClearCoverCache(ctx); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Cover cache cleared.")
	})

	about := widget.NewLabel("nasgame " + version.String())
	actions := container.NewGridWithColumns(3, persist, importBtn, exportBtn, pdfBtn, restoreBtn, clearCache)
	return &settingsView{content: container.NewVBox(form, saveCfg, widget.NewSeparator(), actions, widget.NewSeparator(), about)}
}
