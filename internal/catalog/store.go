/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"nasgame/internal/domain"
	applog "nasgame/internal/log"
	"nasgame/internal/storage"
)

// Listener receives the catalog published by Replace.
type Listener func(domain.Catalog)

// Config controls optional Store behavior.
type Config struct {
	// BackupsDir, when set, receives a timestamped copy of the destination
	// before Persist overwrites it.
	BackupsDir string
	// KeepBackups bounds the number of backups per file (0 means keep all).
	KeepBackups int
}

// Store is the single source of truth for the session's game list.
// One Store is created at startup and handed to the UI; it is safe for
// concurrent use.
type Store struct {
	cfg Config
	log *slog.Logger

	// pubMu serializes Replace so listeners observe publications in order.
	pubMu sync.Mutex

	mu     sync.RWMutex
	games  domain.Catalog
	subs   []subscription
	nextID int
}

type subscription struct {
	id int
	fn Listener
}

// New returns an empty store.
func New(cfg Config) *Store {
	return &Store{cfg: cfg, games: domain.Catalog{}, log: applog.WithComponent("catalog")}
}

// Current returns the live catalog. Callers must treat it as read-only;
// changes go through Replace.
func (s *Store) Current() domain.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games
}

// Replace swaps in c and notifies every listener before returning.
// Duplicate titles in c are dropped, first occurrence wins.
// Listeners run on the caller's goroutine and must not call Replace.
func (s *Store) Replace(c domain.Catalog) {
	if c == nil {
		c = domain.Catalog{}
	}
	c, dropped := Dedupe(c)
	if len(dropped) > 0 {
		s.log.Warn("replace dropped duplicate titles", slog.Any("titles", dropped))
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	s.games = c
	subs := append([]subscription(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(c)
	}
}

// Subscribe registers fn for future publications and returns a function
// that removes it. fn is not called with the current catalog.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Load reads path and publishes the result. Any failure publishes an empty
// catalog instead; the error is returned for reporting only and is never
// fatal. A missing file is the normal first-run case.
func (s *Store) Load(path string) error {
	l := applog.WithOperation(s.log, "load").With(slog.String("path", path))
	games, err := Load(path)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.Info("no catalog file, starting empty", slog.Any("err", err))
		} else {
			l.Error("catalog unusable, starting empty", slog.String("kind", KindOf(err).String()), slog.Any("err", err))
		}
		s.Replace(domain.Catalog{})
		return err
	}
	l.Info("catalog loaded", slog.Int("games", len(games)))
	s.Replace(games)
	return nil
}

// Persist writes the current catalog to path, replacing its content. A
// failure is returned as a single KindWrite error; nothing is retried.
func (s *Store) Persist(path string) error {
	l := applog.WithOperation(s.log, "persist").With(slog.String("path", path))
	data, err := Encode(s.Current())
	if err != nil {
		return newError(KindWrite, path, err)
	}
	if s.cfg.BackupsDir != "" {
		if _, err := storage.BackupFile(path, s.cfg.BackupsDir); err != nil {
			l.Error("backup before persist failed", slog.Any("err", err))
			return newError(KindWrite, path, err)
		}
		if s.cfg.KeepBackups > 0 {
			if err := storage.PruneBackups(s.cfg.BackupsDir, filepath.Base(path), s.cfg.KeepBackups); err != nil {
				l.Warn("prune backups failed", slog.Any("err", err))
			}
		}
	}
	if err := storage.WriteFileAtomic(path, data); err != nil {
		l.Error("persist failed", slog.Any("err", err))
		return newError(KindWrite, path, err)
	}
	l.Info("catalog persisted", slog.Int("games", len(s.Current())))
	return nil
}

// Save writes c to path the way Persist does, without backups. It is used
// for exports that should not disturb the session catalog.
func Save(path string, c domain.Catalog) error {
	data, err := Encode(c)
	if err != nil {
		return newError(KindWrite, path, err)
	}
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return newError(KindWrite, path, err)
	}
	return nil
}

// Close drops all listeners. The store holds no other resources.
func (s *Store) Close() {
	s.mu.Lock()
	s.subs = nil
	s.mu.Unlock()
}

// LoadLatestBackup loads the newest backup of the named catalog file.
func LoadLatestBackup(backupsDir, name string) (domain.Catalog, string, error) {
	p, err := storage.LatestBackup(backupsDir, name)
	if err != nil {
		return nil, "", newError(KindNotFound, backupsDir, err)
	}
	games, err := Load(p)
	return games, p, err
}
