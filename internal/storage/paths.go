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
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	AppDirName         = "nas-game"
	ClientDirName      = "client"
	CatalogFileName    = "games.json"
	ImagesDirName      = "images"
	ScreenshotsDirName = "screenshots"
	BackupsDirName     = "backups"
	CacheDirName       = "cache"
	CoverCacheFileName = "covers.sqlite"

	// emptyCatalog is written when the data directory is first created.
	emptyCatalog = "[]\n"
)

// DefaultBaseDir returns the per-OS app-local data directory:
//   - Linux: $XDG_DATA_HOME/nas-game or ~/.local/share/nas-game
//   - macOS: ~/Library/Application Support/nas-game
//   - Windows: %APPDATA%/nas-game
func DefaultBaseDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		return filepath.Join(appData, AppDirName), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", AppDirName), nil
	default:
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, AppDirName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, ".local", "share", AppDirName), nil
	}
}

// Layout locates the client's files below <app-local-data>/client.
type Layout struct {
	Root string
}

// NewLayout returns the layout under baseDir, or under DefaultBaseDir when
// baseDir is blank.
func NewLayout(baseDir string) (Layout, error) {
	if strings.TrimSpace(baseDir) == "" {
		d, err := DefaultBaseDir()
		if err != nil {
			return Layout{}, err
		}
		baseDir = d
	}
	return Layout{Root: filepath.Join(baseDir, ClientDirName)}, nil
}

func (l Layout) CatalogPath() string    { return filepath.Join(l.Root, CatalogFileName) }
func (l Layout) ImagesDir() string      { return filepath.Join(l.Root, ImagesDirName) }
func (l Layout) ScreenshotsDir() string { return filepath.Join(l.Root, ScreenshotsDirName) }
func (l Layout) BackupsDir() string     { return filepath.Join(l.Root, BackupsDirName) }
func (l Layout) CoverCachePath() string { return filepath.Join(l.Root, CacheDirName, CoverCacheFileName) }

// Ensure creates the directory tree and an empty games.json if none exists yet.
func (l Layout) Ensure() error {
	if l.Root == "" {
		return errors.New("layout root is empty")
	}
	for _, d := range []string{l.Root, l.ImagesDir(), l.ScreenshotsDir(), l.BackupsDir(), filepath.Join(l.Root, CacheDirName)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", d, err)
		}
	}
	if _, err := os.Stat(l.CatalogPath()); errors.Is(err, os.ErrNotExist) {
		if err := WriteFileAtomic(l.CatalogPath(), []byte(emptyCatalog)); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}
	return nil
}
