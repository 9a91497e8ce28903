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

// Package kva answers one question: does this video have an associated
// Kinovea analysis file — either muxed into the container as a subtitle
// stream (internal/demux already detects that at Open, surfaced as
// VideoInfo.HasKva) or sitting next to it on disk as a sidecar .kva file?
// It does not parse the KVA XML schema itself: that's a collaborator's
// concern, out of scope per the reader's external boundary.
package kva

import (
	"os"
	"path/filepath"
	"strings"
)

// SidecarPath returns the sidecar .kva path for a video at videoPath
// (same directory, same basename, .kva extension), regardless of whether
// it actually exists.
func SidecarPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	base := strings.TrimSuffix(videoPath, ext)
	return base + ".kva"
}

// HasSidecar reports whether a sidecar .kva file exists next to videoPath.
func HasSidecar(videoPath string) bool {
	_, err := os.Stat(SidecarPath(videoPath))
	return err == nil
}

// Present reports whether videoPath has an associated KVA analysis file
// by either detection method: a muxed subtitle stream (reported by the
// demux facade as hasMuxedStream) or a sidecar file on disk.
func Present(videoPath string, hasMuxedStream bool) bool {
	return hasMuxedStream || HasSidecar(videoPath)
}
