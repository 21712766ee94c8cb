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
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"nasgame/internal/domain"
	"nasgame/internal/storage"
)

func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		{Title: "Hollow Knight", State: domain.Installed, Status: domain.Completed, PlaytimeMinutes: 10000},
		{Title: "Celeste", State: domain.NotInstalled, Status: domain.NotCompleted, PlaytimeMinutes: 1500},
		{Title: "Stardew Valley", State: domain.Installed, Status: domain.InProgress, PlaytimeMinutes: 300},
		{Title: "Outer Wilds", State: domain.NotInstalled, Status: domain.Completed, PlaytimeMinutes: 2000, Cover: "outer-wilds.webp"},
	}
}

func TestNewStoreStartsEmpty(t *testing.T) {
	s := New(Config{})
	if c := s.Current(); c == nil || len(c) != 0 {
		t.Fatalf("Current() = %#v, want empty", c)
	}
}

func TestReplaceNotifiesSynchronously(t *testing.T) {
	s := New(Config{})
	var got []domain.Catalog
	s.Subscribe(func(c domain.Catalog) { got = append(got, c) })
	var order []int
	s.Subscribe(func(domain.Catalog) { order = append(order, 1) })
	s.Subscribe(func(domain.Catalog) { order = append(order, 2) })

	s.Replace(sampleCatalog())

	if len(got) != 1 || len(got[0]) != 4 {
		t.Fatalf("listener not called before Replace returned: %v", got)
	}
	if !reflect.DeepEqual(order, []int{1, 2}) {
		t.Fatalf("listeners ran out of registration order: %v", order)
	}
	if !reflect.DeepEqual(s.Current(), sampleCatalog()) {
		t.Fatalf("Current() does not reflect Replace")
	}
}

func TestReplaceDoesNotAliasCallerSlice(t *testing.T) {
	s := New(Config{})
	in := sampleCatalog()
	s.Replace(in)
	in[0].Title = "mutated"
	if s.Current()[0].Title != "Hollow Knight" {
		t.Fatalf("store shares backing array with caller")
	}
}

func TestReplaceDeduplicates(t *testing.T) {
	s := New(Config{})
	c := append(sampleCatalog(), domain.NewGame("Celeste"))
	s.Replace(c)
	if n := len(s.Current()); n != 4 {
		t.Fatalf("len(Current) = %d, want 4", n)
	}
}

func TestSubscribeCancel(t *testing.T) {
	s := New(Config{})
	calls := 0
	cancel := s.Subscribe(func(domain.Catalog) { calls++ })
	s.Replace(nil)
	cancel()
	cancel()
	s.Replace(sampleCatalog())
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if c := s.Current(); c == nil {
		t.Fatalf("Replace(nil) must publish an empty catalog, not nil")
	}
}

func TestListenerMayReadCurrent(t *testing.T) {
	s := New(Config{})
	var seen int
	s.Subscribe(func(domain.Catalog) { seen = len(s.Current()) })
	s.Replace(sampleCatalog())
	if seen != 4 {
		t.Fatalf("listener saw %d games via Current, want 4", seen)
	}
}

func TestStoreLoadFailureYieldsEmpty(t *testing.T) {
	cases := map[string]string{
		"object":    `{"not":"an array"}`,
		"truncated": `[{"title":"Celeste",`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			s := New(Config{})
			s.Replace(sampleCatalog())
			published := -1
			s.Subscribe(func(c domain.Catalog) { published = len(c) })

			err := s.Load(writeCatalog(t, content))
			if err == nil {
				t.Fatalf("expected a reported error")
			}
			if published != 0 || len(s.Current()) != 0 {
				t.Fatalf("expected empty catalog to be published, got %d / %d", published, len(s.Current()))
			}
		})
	}
	t.Run("missing", func(t *testing.T) {
		s := New(Config{})
		err := s.Load(filepath.Join(t.TempDir(), "games.json"))
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
		if len(s.Current()) != 0 {
			t.Fatalf("expected empty catalog")
		}
	})
}

func TestPersistLoadRoundTrip(t *testing.T) {
	for n := 0; n <= 5; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			want := domain.Catalog{}
			for i := 0; i < n; i++ {
				g := domain.Game{
					Title:           fmt.Sprintf("Game %d", i),
					State:           domain.InstallStates[i%len(domain.InstallStates)],
					Status:          domain.CompletionStatuses[i%len(domain.CompletionStatuses)],
					PlaytimeMinutes: i * 90,
				}
				if i%2 == 1 {
					g.Cover = fmt.Sprintf("game-%d.png", i)
				}
				want = append(want, g)
			}
			s := New(Config{})
			s.Replace(want)
			p := filepath.Join(t.TempDir(), "games.json")
			if err := s.Persist(p); err != nil {
				t.Fatalf("Persist: %v", err)
			}
			got, err := Load(p)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestPersistOverwrites(t *testing.T) {
	p := writeCatalog(t, `[{"title":"Old"},{"title":"Older"}]`)
	s := New(Config{})
	s.Replace(domain.Catalog{domain.NewGame("New")})
	if err := s.Persist(p); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, err := Load(p)
	if err != nil || len(got) != 1 || got[0].Title != "New" {
		t.Fatalf("after overwrite: %+v, %v", got, err)
	}
}

func TestPersistFailureIsWriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(Config{})
	s.Replace(sampleCatalog())
	err := s.Persist(filepath.Join(blocker, "games.json"))
	if !errors.Is(err, ErrWrite) {
		t.Fatalf("Persist error = %v, want ErrWrite", err)
	}
}

func TestPersistKeepsBackups(t *testing.T) {
	root := t.TempDir()
	bdir := filepath.Join(root, storage.BackupsDirName)
	p := filepath.Join(root, "games.json")
	s := New(Config{BackupsDir: bdir, KeepBackups: 2})

	for i := 0; i < 4; i++ {
		s.Replace(domain.Catalog{domain.NewGame(fmt.Sprintf("v%d", i))})
		if err := s.Persist(p); err != nil {
			t.Fatalf("Persist %d: %v", i, err)
		}
	}
	all, err := storage.Backups(bdir, "games.json")
	if err != nil {
		t.Fatalf("Backups: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("backups kept = %d, want 2", len(all))
	}
	games, path, err := LoadLatestBackup(bdir, "games.json")
	if err != nil {
		t.Fatalf("LoadLatestBackup: %v", err)
	}
	if path == "" || len(games) != 1 || games[0].Title != "v2" {
		t.Fatalf("latest backup = %s %+v", path, games)
	}
}

func TestConcurrentReplaceAndRead(t *testing.T) {
	s := New(Config{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Replace(domain.Catalog{domain.NewGame(fmt.Sprintf("g%d", i))})
		}(i)
		go func() {
			defer wg.Done()
			for _, g := range s.Current() {
				_ = g.Title
			}
		}()
	}
	wg.Wait()
	if len(s.Current()) != 1 {
		t.Fatalf("expected one game after concurrent replaces, got %d", len(s.Current()))
	}
}

func TestCloseDropsListeners(t *testing.T) {
	s := New(Config{})
	calls := 0
	s.Subscribe(func(domain.Catalog) { calls++ })
	s.Close()
	s.Replace(sampleCatalog())
	if calls != 0 {
		t.Fatalf("listener called after Close")
	}
}

func TestSaveDoesNotTouchStore(t *testing.T) {
	p := filepath.Join(t.TempDir(), "export", "games.json")
	if err := Save(p, sampleCatalog()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(p)
	if err != nil || len(got) != 4 {
		t.Fatalf("Load after Save: %d %v", len(got), err)
	}
}
