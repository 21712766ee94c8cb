/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus a catalog snapshot.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"nasgame/internal/catalog"
	applog "nasgame/internal/log"
	"nasgame/internal/storage"
	"nasgame/internal/version"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// Session is what Recover saves. Both fields are optional.
type Session struct {
	Layout *storage.Layout
	Store  *catalog.Store
}

// Recover captures a panic, logs it with its stack, writes a crash report
// and snapshots the in-memory catalog next to the regular backups, so the
// newest backup reflects the session at the moment of the crash.
//
// Usage: defer crash.Recover(sess)
func Recover(sess *Session) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(sess, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if path, err := autosave(sess); err != nil {
		l.Error("crash snapshot failed", slog.Any("err", err))
	} else if path != "" {
		l.Info("crash snapshot written", slog.String("path", path))
	}

	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func reportDir(sess *Session) string {
	if sess != nil && sess.Layout != nil && sess.Layout.Root != "" {
		return sess.Layout.BackupsDir()
	}
	return os.TempDir()
}

func writeReport(sess *Session, panicVal any, stack []byte) (string, error) {
	dir := reportDir(sess)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "nasgame crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if sess != nil && sess.Layout != nil {
		fmt.Fprintf(&buf, "DataDir: %s\n", sess.Layout.Root)
		fmt.Fprintf(&buf, "Catalog: %s\n", sess.Layout.CatalogPath())
	}
	if sess != nil && sess.Store != nil {
		fmt.Fprintf(&buf, "Games: %d\n", len(sess.Store.Current()))
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := storage.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return path, err
	}
	return path, nil
}

// autosave writes the current catalog as a backup of the catalog file.
// It does not touch the catalog file itself. An empty catalog is not
// snapshotted so it cannot shadow the last good backup on restore.
func autosave(sess *Session) (string, error) {
	if sess == nil || sess.Layout == nil || sess.Store == nil {
		return "", nil
	}
	games := sess.Store.Current()
	if len(games) == 0 {
		return "", nil
	}
	data, err := catalog.Encode(games)
	if err != nil {
		return "", err
	}
	path := storage.NewBackupPath(sess.Layout.BackupsDir(), storage.CatalogFileName)
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}
