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

package kva

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarPath(t *testing.T) {
	assert.Equal(t, "/videos/clip.kva", SidecarPath("/videos/clip.mp4"))
	assert.Equal(t, "/videos/clip.kva", SidecarPath("/videos/clip.avi"))
	assert.Equal(t, "clip.kva", SidecarPath("clip"))
}

func TestHasSidecar(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, nil, 0o644))

	assert.False(t, HasSidecar(video), "no .kva written yet")

	require.NoError(t, os.WriteFile(SidecarPath(video), []byte("<KinoveaVideoAnalysis/>"), 0o644))
	assert.True(t, HasSidecar(video))
}

func TestPresent(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, nil, 0o644))

	assert.False(t, Present(video, false))
	assert.True(t, Present(video, true), "muxed subtitle stream alone is enough")

	require.NoError(t, os.WriteFile(SidecarPath(video), nil, 0o644))
	assert.True(t, Present(video, false), "sidecar file alone is enough")
}
