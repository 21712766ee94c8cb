/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	applog "nasgame/internal/log"
)

// AppConfig is the user-editable configuration stored as YAML in the user
// config directory. Environment variables override file values at runtime and
// are never written back.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark"
}

// LibraryConfig holds catalog location and library view preferences.
type LibraryConfig struct {
	// DataDir overrides the app-local data directory. Empty means the per-OS default.
	DataDir  string `yaml:"data_dir"`
	SortBy   string `yaml:"sort_by"`   // "", "title", "playtime"
	ViewMode string `yaml:"view_mode"` // "grid" | "list"
	CardSize int    `yaml:"card_size"` // 1-100 slider value
	// KeepBackups bounds the timestamped copies kept of games.json.
	KeepBackups int `yaml:"keep_backups"`
}

type CoversConfig struct {
	ThumbWidth    int   `yaml:"thumb_width"`
	ThumbHeight   int   `yaml:"thumb_height"`
	CacheMaxBytes int64 `yaml:"cache_max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Library       LibraryConfig `yaml:"library"`
	Covers        CoversConfig  `yaml:"covers"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Library:       LibraryConfig{SortBy: "", ViewMode: "grid", CardSize: 50, KeepBackups: 10},
		Covers:        CoversConfig{ThumbWidth: 230, ThumbHeight: 345, CacheMaxBytes: 64 * 1024 * 1024},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath    = "NASGAME_CONFIG"
	EnvDataDir       = "NASGAME_DATA_DIR"
	EnvTheme         = "NASGAME_THEME"
	EnvCacheMaxBytes = "NASGAME_COVER_CACHE_MAX_BYTES"
	EnvLogLevel      = applog.EnvLevel
	EnvLogFormat     = applog.EnvFormat
	EnvLogSource     = applog.EnvSource
	EnvLogFile       = applog.EnvFile
)

// ConfigPath returns the per-user config file path. NASGAME_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return ExpandHome(p), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "nas-game")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "nas-game")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "nas-game")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "nas-game")
		}
	}
	if base == "" || base == "nas-game" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config (if present), merges it over the defaults and
// applies environment overrides. A missing or unreadable file is not an error.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applog.WithComponent("config").Warn("ignoring malformed config file", "path", path, "err", err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML to the user config path.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg as YAML to path.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.General.Theme); v != "" {
		dst.General.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Library.DataDir); v != "" {
		dst.Library.DataDir = v
	}
	// an empty sort_by is meaningful (catalog order), so copy it as-is
	dst.Library.SortBy = strings.ToLower(strings.TrimSpace(src.Library.SortBy))
	if v := strings.TrimSpace(src.Library.ViewMode); v != "" {
		dst.Library.ViewMode = strings.ToLower(v)
	}
	if src.Library.CardSize > 0 && src.Library.CardSize <= 100 {
		dst.Library.CardSize = src.Library.CardSize
	}
	if src.Library.KeepBackups > 0 {
		dst.Library.KeepBackups = src.Library.KeepBackups
	}
	if src.Covers.ThumbWidth > 0 {
		dst.Covers.ThumbWidth = src.Covers.ThumbWidth
	}
	if src.Covers.ThumbHeight > 0 {
		dst.Covers.ThumbHeight = src.Covers.ThumbHeight
	}
	if src.Covers.CacheMaxBytes > 0 {
		dst.Covers.CacheMaxBytes = src.Covers.CacheMaxBytes
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Library.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Covers.CacheMaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor reports the env var overriding the given dotted key, if any.
// The Settings tab uses it to mark fields that edits will not affect.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "library.data_dir":
		env = EnvDataDir
	case "general.theme":
		env = EnvTheme
	case "covers.cache_max_bytes":
		env = EnvCacheMaxBytes
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// LogOptions converts the logging section into logger options.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: ExpandHome(l.File)}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
