// SPDX-License-Identifier: GPL-3.0-or-later
//
// kinoreader
// Copyright (C) 2026 Joan Charmant
//
// kinoreader is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kinoreader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with kinoreader.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcharmant/kinoreader/pkg/reader"
)

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "settings.yml"))
	require.NoError(t, err)
	assert.Equal(t, AppConfig{}, cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	want := AppConfig{
		Presets: []Preset{
			{Name: "tv", AspectRatio: "16:9", Deinterlace: true, Thumbnails: 12},
			{Name: "old", AspectRatio: "4:3", MaxCacheMB: 256},
		},
		LastPreset: "tv",
		S3Region:   "eu-west-1",
	}

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFindPreset(t *testing.T) {
	cfg := AppConfig{Presets: []Preset{{Name: "tv"}, {Name: "old"}}}

	p, ok := cfg.FindPreset("old")
	assert.True(t, ok)
	assert.Equal(t, "old", p.Name)

	_, ok = cfg.FindPreset("missing")
	assert.False(t, ok)
}

func TestPresetToOptions(t *testing.T) {
	cases := []struct {
		ratio string
		want  reader.ImageAspectRatio
	}{
		{"", reader.Auto},
		{"auto", reader.Auto},
		{"4:3", reader.Force43},
		{"16:9", reader.Force169},
		{"square", reader.ForcedSquarePixels},
	}
	for _, c := range cases {
		p := Preset{AspectRatio: c.ratio, Deinterlace: true}
		opts := p.ToOptions()
		assert.Equal(t, c.want, opts.ImageAspectRatio, "ratio=%q", c.ratio)
		assert.True(t, opts.Deinterlace)
	}
}
