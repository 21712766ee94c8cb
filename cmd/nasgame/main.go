/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"nasgame/internal/catalog"
	"nasgame/internal/config"
	"nasgame/internal/cover"
	"nasgame/internal/crash"
	"nasgame/internal/domain"
	"nasgame/internal/export"
	applog "nasgame/internal/log"
	"nasgame/internal/session"
	"nasgame/internal/ui"
	"nasgame/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "nasgame - game library browser")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nasgame version|-v|--version     Show version")
	fmt.Fprintln(w, "  nasgame paths                    Show data and config locations")
	fmt.Fprintln(w, "  nasgame list [query]             List games, optionally filtered by title")
	fmt.Fprintln(w, "  nasgame import <file>            Validate <file> and make it the library")
	fmt.Fprintln(w, "  nasgame export <file>            Write the library to <file>")
	fmt.Fprintln(w, "  nasgame pdf <file>               Write a PDF contact sheet of the library")
	fmt.Fprintln(w, "  nasgame cover <title>            Show which cover file a title resolves to")
	fmt.Fprintln(w, "  nasgame restore                  Restore the newest library backup")
	fmt.Fprintln(w, "  nasgame ui [<dataDir>]           Launch desktop UI (build with -tags fyne)")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	applog.Init(cfg.Logging.LogOptions())
	defer applog.Close()
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))

	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "nasgame")
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "ui":
		var dir string
		if len(rest) > 0 {
			dir = rest[0]
		}
		if err := ui.Run(dir); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		return 0
	}

	need := map[string]int{"paths": 0, "list": 0, "import": 1, "export": 1, "pdf": 1, "cover": 1, "restore": 0}
	n, ok := need[cmd]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
	if len(rest) < n {
		fmt.Fprintf(stderr, "%s requires an argument\n", cmd)
		usage(stderr)
		return 2
	}

	sess, err := session.Open(cfg)
	if err != nil {
		l.Error("open session failed", slog.Any("err", err))
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer sess.Close()
	defer crash.Recover(&crash.Session{Layout: &sess.Layout, Store: sess.Store})
	if sess.LoadErr != nil && !errors.Is(sess.LoadErr, catalog.ErrNotFound) {
		fmt.Fprintf(stderr, "Warning: library file unusable (%s), using an empty library\n", catalog.KindOf(sess.LoadErr))
	}

	ctx := context.Background()
	switch cmd {
	case "paths":
		cp, _ := config.ConfigPath()
		fmt.Fprintln(stdout, "Config:     ", cp)
		fmt.Fprintln(stdout, "Library:    ", sess.Layout.CatalogPath())
		fmt.Fprintln(stdout, "Covers:     ", sess.Layout.ImagesDir())
		fmt.Fprintln(stdout, "Screenshots:", sess.Layout.ScreenshotsDir())
		fmt.Fprintln(stdout, "Backups:    ", sess.Layout.BackupsDir())
	case "list":
		q := catalog.Query{Text: strings.Join(rest, " "), SortBy: cfg.Library.SortBy}
		games := sess.Query(q)
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TITLE\tSTATE\tSTATUS\tPLAYTIME")
		for _, g := range games {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.Title, g.State, g.Status, domain.FormatPlaytime(g.PlaytimeMinutes))
		}
		_ = tw.Flush()
		fmt.Fprintf(stdout, "%d of %d games\n", len(games), len(sess.Store.Current()))
	case "import":
		count, err := sess.Import(rest[0])
		if err != nil {
			return fail(stderr, l, "import", err)
		}
		fmt.Fprintf(stdout, "Imported %d games into %s\n", count, sess.Layout.CatalogPath())
	case "export":
		if err := sess.Export(rest[0]); err != nil {
			return fail(stderr, l, "export", err)
		}
		fmt.Fprintln(stdout, "Exported library to", rest[0])
	case "pdf":
		out := config.ExpandHome(rest[0])
		if err := export.ExportCatalogPDF(ctx, sess.Store.Current(), out, export.PDFOptions{Covers: sess.Covers}); err != nil {
			return fail(stderr, l, "pdf", err)
		}
		fmt.Fprintln(stdout, "Wrote", out)
	case "cover":
		title := strings.Join(rest, " ")
		g := domain.NewGame(title)
		if i := sess.Store.Current().Index(title); i >= 0 {
			g = sess.Store.Current()[i]
		}
		printCover(ctx, stdout, sess.Covers, g)
	case "restore":
		from, err := sess.Restore()
		if err != nil {
			return fail(stderr, l, "restore", err)
		}
		fmt.Fprintln(stdout, "Restored library from", from)
	}
	return 0
}

func printCover(ctx context.Context, w io.Writer, r *cover.Resolver, g domain.Game) {
	res := r.Resolve(ctx, g)
	h := res.Or(cover.Fallback())
	defer h.Release()
	if h.IsFallback() {
		fmt.Fprintf(w, "%s: fallback (%v)\n", g.Title, res.Err())
		return
	}
	if _, err := cover.Decode(h); err != nil {
		fmt.Fprintf(w, "%s: fallback (%s is not displayable: %v)\n", g.Title, h.Path(), err)
		return
	}
	fmt.Fprintf(w, "%s: %s (%s, %d bytes)\n", g.Title, h.Path(), h.MIME(), len(h.Bytes()))
}

func fail(w io.Writer, l *slog.Logger, op string, err error) int {
	l.Error(op+" failed", slog.Any("err", err))
	fmt.Fprintln(w, "Error:", err)
	return 1
}
