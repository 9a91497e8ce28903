/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * kinoreader
 * Copyright (C) 2026 Joan Charmant
 *
 * kinoreader is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * kinoreader is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with kinoreader.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package config loads and persists kinoreader's on-disk settings,
// generalized from the teacher's single global AppConfig/Environment
// pair (config.go) to a set of named, reusable playback presets instead
// of a list of camera entries.
package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/jcharmant/kinoreader/pkg/reader"
)

const appName = "kinoreader"

var mu sync.Mutex

// Environment mirrors the teacher's Environment: the set of resolved
// filesystem locations the app needs, computed once at startup.
type Environment struct {
	ConfigDir    string
	SettingsFile string
	HomeDir      string
	AppPath      string
	TmpDir       string
	DebugLogPath string
	OS           string
}

// Preset is one named combination of reader options, the teacher's
// CameraConfig generalized from "one saved RTSP source" to "one saved
// decoding preset" (aspect ratio override, deinterlace, thumbnail count).
type Preset struct {
	Name        string `yaml:"name"`
	AspectRatio string `yaml:"aspect_ratio,omitempty"` // "auto", "4:3", "16:9", "square"
	Deinterlace bool   `yaml:"deinterlace,omitempty"`
	Thumbnails  int    `yaml:"thumbnails,omitempty"`
	MaxCacheMB  int    `yaml:"max_cache_mb,omitempty"`
	MaxCacheSec int    `yaml:"max_cache_sec,omitempty"`
}

// AppConfig is the top-level YAML document persisted to settings.yml.
type AppConfig struct {
	Presets       []Preset `yaml:"presets,omitempty"`
	LastPreset    string   `yaml:"last_preset,omitempty"`
	S3Region      string   `yaml:"s3_region,omitempty"`
	DownloadCache string   `yaml:"download_cache,omitempty"` // local dir for resolved s3:// temp files
}

// ToOptions translates a preset into reader.Options, defaulting to Auto
// aspect ratio the same way reader.DefaultOptions does.
func (p Preset) ToOptions() reader.Options {
	opts := reader.DefaultOptions()
	opts.Deinterlace = p.Deinterlace
	switch p.AspectRatio {
	case "4:3":
		opts.ImageAspectRatio = reader.Force43
	case "16:9":
		opts.ImageAspectRatio = reader.Force169
	case "square":
		opts.ImageAspectRatio = reader.ForcedSquarePixels
	}
	return opts
}

// InitEnvironment resolves every path kinoreader needs and wires logging
// to both the debug log file and, when KINOREADER_DEBUG=true, stdout —
// the same dual-sink convention as the teacher's initlog.
func InitEnvironment() (Environment, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Environment{}, fmt.Errorf("config: resolve home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", appName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return Environment{}, fmt.Errorf("config: create config directory: %w", err)
	}

	env := Environment{
		ConfigDir:    configDir,
		SettingsFile: filepath.Join(configDir, "settings.yml"),
		HomeDir:      home,
		AppPath:      appPath(),
		TmpDir:       os.TempDir(),
		DebugLogPath: filepath.Join(configDir, "debug.log"),
		OS:           runtime.GOOS,
	}

	if err := initLog(env.DebugLogPath); err != nil {
		return env, err
	}
	return env, nil
}

func initLog(path string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return fmt.Errorf("config: open debug log: %w", err)
	}
	if os.Getenv("KINOREADER_DEBUG") == "true" {
		log.SetOutput(io.MultiWriter(file, os.Stdout))
	} else {
		log.SetOutput(file)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	return nil
}

func appPath() string {
	exePath, err := os.Executable()
	if err != nil {
		return ""
	}
	realPath, err := filepath.EvalSymlinks(exePath)
	if err != nil {
		return ""
	}
	return filepath.Dir(realPath)
}

// Load reads and parses the settings file at path. A missing file is not
// an error: it returns a zero-value AppConfig, matching the teacher's
// "first run, no config yet" tolerance.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save atomically writes cfg to path (write-to-tmp, then rename), the
// same pattern as the teacher's SaveConfig/UpdateCameraGeometry.
func Save(path string, cfg AppConfig) error {
	mu.Lock()
	defer mu.Unlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}

	enc := yaml.NewEncoder(f)
	if err := enc.Encode(&cfg); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("config: finalize encoder: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

// FindPreset looks up a preset by name, returning (preset, true) or a
// zero Preset and false.
func (c AppConfig) FindPreset(name string) (Preset, bool) {
	for _, p := range c.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
