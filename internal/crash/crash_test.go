/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nasgame/internal/catalog"
	"nasgame/internal/domain"
	"nasgame/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "nasgame crash report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestWriteReportCreatesFileInBackups(t *testing.T) {
	layout := storage.Layout{Root: t.TempDir()}
	path, err := writeReport(&Session{Layout: &layout}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != layout.BackupsDir() {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
}

func TestRecoverSnapshotsCatalog(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	layout := storage.Layout{Root: t.TempDir()}
	store := catalog.New(catalog.Config{})
	store.Replace(domain.Catalog{domain.NewGame("Celeste"), domain.NewGame("Hades")})

	func() {
		defer Recover(&Session{Layout: &layout, Store: store})
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	ents, err := os.ReadDir(layout.BackupsDir())
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	var report bool
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log") {
			report = true
		}
	}
	if !report {
		t.Fatalf("crash report missing in %v", ents)
	}
	games, _, err := catalog.LoadLatestBackup(layout.BackupsDir(), storage.CatalogFileName)
	if err != nil {
		t.Fatalf("snapshot not loadable: %v", err)
	}
	if len(games) != 2 || games[0].Title != "Celeste" {
		t.Fatalf("snapshot = %+v", games)
	}
}

func TestRecoverKeepsLastGoodBackupWhenCatalogEmpty(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	oldExit := exitFn
	exitFn = func(int) {}
	defer func() { exitFn = oldExit }()

	layout := storage.Layout{Root: t.TempDir()}
	if err := os.MkdirAll(layout.BackupsDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	good, err := catalog.Encode(domain.Catalog{domain.NewGame("Outer Wilds")})
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.WriteFileAtomic(storage.NewBackupPath(layout.BackupsDir(), storage.CatalogFileName), good); err != nil {
		t.Fatal(err)
	}

	// A failed load leaves the store empty.
	store := catalog.New(catalog.Config{})
	func() {
		defer Recover(&Session{Layout: &layout, Store: store})
		panic("boom")
	}()

	games, _, err := catalog.LoadLatestBackup(layout.BackupsDir(), storage.CatalogFileName)
	if err != nil {
		t.Fatalf("LoadLatestBackup: %v", err)
	}
	if len(games) != 1 || games[0].Title != "Outer Wilds" {
		t.Fatalf("latest backup = %+v, want the pre-crash catalog", games)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	oldExit := exitFn
	exitFn = func(int) { t.Fatal("exit called without panic") }
	defer func() { exitFn = oldExit }()
	func() {
		defer Recover(nil)
	}()
}
