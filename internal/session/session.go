/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session wires configuration, on-disk layout, the catalog store
// and cover resolution into the object the CLI and the UI work with.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nasgame/internal/catalog"
	"nasgame/internal/config"
	"nasgame/internal/cover"
	"nasgame/internal/domain"
	applog "nasgame/internal/log"
	"nasgame/internal/storage"
)

// Session is one running library: its files, its catalog and its covers.
type Session struct {
	Config config.AppConfig
	Layout storage.Layout
	Store  *catalog.Store
	Covers *cover.Resolver

	// LoadErr is the classified catalog load failure, if any. The session
	// still opens with an empty catalog in that case.
	LoadErr error

	cache *storage.CoverCache
	log   *slog.Logger
}

// Open prepares the data directory and loads the catalog. Only layout
// problems fail; catalog and cache problems are logged and tolerated.
func Open(cfg config.AppConfig) (*Session, error) {
	l := applog.WithOperation(applog.WithComponent("session"), "open")
	layout, err := storage.NewLayout(config.ExpandHome(strings.TrimSpace(cfg.Library.DataDir)))
	if err != nil {
		return nil, err
	}
	if err := layout.Ensure(); err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}

	s := &Session{
		Config: cfg,
		Layout: layout,
		Store:  catalog.New(catalog.Config{BackupsDir: layout.BackupsDir(), KeepBackups: cfg.Library.KeepBackups}),
		log:    applog.WithComponent("session"),
	}
	s.Covers = cover.NewResolver(layout.ImagesDir())
	if cache, err := storage.OpenCoverCache(layout.CoverCachePath(), cfg.Covers.CacheMaxBytes); err != nil {
		l.Warn("cover cache unavailable, scaling without cache", slog.Any("err", err))
		s.Covers.WithThumbnails(cover.NewThumbnailer(nil, cfg.Covers.ThumbWidth, cfg.Covers.ThumbHeight))
	} else {
		s.cache = cache
		s.Covers.WithThumbnails(cover.NewThumbnailer(cache, cfg.Covers.ThumbWidth, cfg.Covers.ThumbHeight))
	}

	s.LoadErr = s.Store.Load(layout.CatalogPath())
	l.Info("session ready", slog.String("root", layout.Root), slog.Int("games", len(s.Store.Current())))
	return s, nil
}

// Persist writes the current catalog to the session's catalog file.
func (s *Session) Persist() error { return s.Store.Persist(s.Layout.CatalogPath()) }

// Import validates the catalog at path, publishes it and persists it.
// Nothing changes when path cannot be loaded.
func (s *Session) Import(path string) (int, error) {
	games, err := catalog.Load(config.ExpandHome(path))
	if err != nil {
		return 0, err
	}
	s.Store.Replace(games)
	return len(s.Store.Current()), s.Persist()
}

// Export writes the current catalog to path without touching the session
// files.
func (s *Session) Export(path string) error {
	return catalog.Save(config.ExpandHome(path), s.Store.Current())
}

// Restore publishes the newest backup of the catalog file and persists it.
func (s *Session) Restore() (string, error) {
	games, from, err := catalog.LoadLatestBackup(s.Layout.BackupsDir(), storage.CatalogFileName)
	if err != nil {
		return "", err
	}
	s.Store.Replace(games)
	return from, s.Persist()
}

// Query filters the current catalog.
func (s *Session) Query(q catalog.Query) domain.Catalog { return catalog.Filter(s.Store.Current(), q) }

// ClearCoverCache drops every cached thumbnail.
func (s *Session) ClearCoverCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}

// Screenshots lists image files in the screenshots directory by name.
func (s *Session) Screenshots() ([]string, error) {
	ents, err := os.ReadDir(s.Layout.ScreenshotsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !cover.Displayable(cover.MIMEType(filepath.Ext(e.Name()))) {
			continue
		}
		out = append(out, filepath.Join(s.Layout.ScreenshotsDir(), e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Close releases the cover cache and drops catalog listeners.
func (s *Session) Close() error {
	s.Store.Close()
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}
