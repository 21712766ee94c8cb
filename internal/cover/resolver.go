/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cover

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"nasgame/internal/domain"
	applog "nasgame/internal/log"
)

// Resolver finds cover files for catalog entries inside one image
// directory. It keeps no state between calls; every Resolve reads the file
// again.
type Resolver struct {
	dir    string
	thumbs *Thumbnailer
	log    *slog.Logger
}

// NewResolver returns a resolver scoped to dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir, log: applog.WithComponent("cover")}
}

// WithThumbnails makes Image serve scaled covers through t.
func (r *Resolver) WithThumbnails(t *Thumbnailer) *Resolver {
	r.thumbs = t
	return r
}

func (r *Resolver) Dir() string { return r.dir }

// FileStem turns a title into a file name stem by replacing characters that
// are not allowed in file names with '_'.
func FileStem(title string) string {
	stem := strings.Map(func(c rune) rune {
		switch {
		case c < 0x20, c == 0x7f:
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, c):
			return '_'
		}
		return c
	}, strings.TrimSpace(title))
	stem = strings.TrimRight(stem, ". ")
	if stem == "" {
		return "_"
	}
	return stem
}

// Candidates lists the file names tried for g, in order. An explicit cover
// hint is used as is, or with each known extension when it has none.
func (r *Resolver) Candidates(g domain.Game) ([]string, error) {
	stem := FileStem(g.Title)
	if hint := strings.TrimSpace(g.Cover); hint != "" {
		hint = filepath.FromSlash(hint)
		if !filepath.IsLocal(hint) {
			return nil, fmt.Errorf("%w: %q", ErrOutsideDir, g.Cover)
		}
		if filepath.Ext(hint) != "" {
			return []string{filepath.Clean(hint)}, nil
		}
		stem = filepath.Clean(hint)
	}
	out := make([]string, 0, len(Extensions))
	for _, ext := range Extensions {
		out = append(out, stem+"."+ext)
	}
	return out, nil
}

// Resolve reads the cover of g. It never fails past its boundary: the
// returned Result either holds a handle or an error for inspection, and
// callers substitute Fallback via Result.Or.
func (r *Resolver) Resolve(ctx context.Context, g domain.Game) Result {
	l := applog.WithOperation(r.log, "resolve").With(slog.String("title", g.Title))
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}
	names, err := r.Candidates(g)
	if err != nil {
		l.Warn("rejected cover hint", slog.Any("err", err))
		return Failed(err)
	}
	var readErr error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return Failed(err)
		}
		p := filepath.Join(r.dir, name)
		data, err := os.ReadFile(p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				l.Warn("cover unreadable", slog.String("file", name), slog.Any("err", err))
				readErr = err
			}
			continue
		}
		return Found(newHandle(name, p, MIMEType(filepath.Ext(name)), data))
	}
	l.Debug("no cover file, using fallback")
	if readErr != nil {
		return Failed(fmt.Errorf("%w: %q: %w", ErrNotFound, g.Title, readErr))
	}
	return Failed(fmt.Errorf("%w: %q", ErrNotFound, g.Title))
}

// ResolveTitle looks up a cover by title alone.
func (r *Resolver) ResolveTitle(ctx context.Context, title string) Result {
	return r.Resolve(ctx, domain.NewGame(title))
}

// Image decodes h, through the thumbnail cache when one is configured.
func (r *Resolver) Image(ctx context.Context, h *Handle) (image.Image, error) {
	if h.IsFallback() {
		return FallbackImage(), nil
	}
	if r.thumbs != nil && h.Path() != "" {
		return r.thumbs.Image(ctx, h)
	}
	return Decode(h)
}

// Display resolves g all the way to something that can be shown. Missing,
// undisplayable and corrupt covers all end up as the fallback; the
// substitution is logged, never reported.
func (r *Resolver) Display(ctx context.Context, g domain.Game) (*Handle, image.Image) {
	var img image.Image
	res := r.Resolve(ctx, g).Then(func(h *Handle) Result {
		decoded, err := r.Image(ctx, h)
		if err != nil {
			r.log.Info("cover not displayable, using fallback",
				slog.String("title", g.Title), slog.String("file", h.Name()), slog.Any("err", err))
			h.Release()
			return Failed(err)
		}
		img = decoded
		return Found(h)
	})
	h := res.Or(Fallback())
	if h.IsFallback() {
		return h, FallbackImage()
	}
	return h, img
}
