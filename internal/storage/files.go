/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// WriteFileAtomic replaces path with data: it writes a temp file in the same
// directory, fsyncs it and renames it over the target. The target is never
// left half-written; on failure the temp file is removed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		// Windows refuses to rename over an existing file.
		if fi, statErr := os.Stat(path); runtime.GOOS == "windows" && statErr == nil && fi.Mode().IsRegular() {
			_ = os.Remove(path)
			err = os.Rename(temp, path)
		}
		if err != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

const backupStamp = "20060102-150405.000000000"

// BackupFile copies src to backupsDir/<name>.<stamp>.bak. A missing src is
// not an error and yields an empty path.
func BackupFile(src, backupsDir string) (string, error) {
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	dst := NewBackupPath(backupsDir, filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("backup %s: %w", filepath.Base(src), err)
	}
	return dst, nil
}

// NewBackupPath returns an unused backup path for the named file.
func NewBackupPath(backupsDir, name string) string {
	// fixed-width stamps sort by age; bump the clock on collision
	t := time.Now()
	for {
		dst := filepath.Join(backupsDir, fmt.Sprintf("%s.%s.bak", name, t.Format(backupStamp)))
		if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
			return dst
		}
		t = t.Add(time.Nanosecond)
	}
}

// Backups lists backups of the named file, oldest first.
func Backups(backupsDir, name string) ([]string, error) {
	ents, err := os.ReadDir(backupsDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, name+".") && strings.HasSuffix(n, ".bak") {
			out = append(out, filepath.Join(backupsDir, n))
		}
	}
	// timestamp in name yields lexicographic order
	sort.Strings(out)
	return out, nil
}

// LatestBackup returns the newest backup of the named file.
func LatestBackup(backupsDir, name string) (string, error) {
	all, err := Backups(backupsDir, name)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	if len(all) == 0 {
		return "", errors.New("no backups found")
	}
	return all[len(all)-1], nil
}

// PruneBackups keeps the newest keep backups of the named file.
func PruneBackups(backupsDir, name string, keep int) error {
	all, err := Backups(backupsDir, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if keep < 0 {
		keep = 0
	}
	for len(all) > keep {
		if err := os.Remove(all[0]); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		all = all[1:]
	}
	return nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
