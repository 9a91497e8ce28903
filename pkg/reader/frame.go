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

package reader

// PixelFormat identifies the pixel layout of an ImageBuffer. The reader
// only ever produces one target format per session (the one Options/
// VideoInfo.DecodingSize were computed for); this type exists so callers
// and the sink (internal/sink) don't have to depend on the codec facade's
// own pixel format enum.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	// PixelFormatBGRA is a tightly packed 4-byte-per-pixel format, the one
	// the teacher's bgraScaler always converts to and the one internal/sink
	// uploads directly into an SDL2 texture.
	PixelFormatBGRA
)

// ImageBuffer is a decoded, converted image: a pixel format tag, its
// dimensions, the row stride, and the raw packed bytes.
type ImageBuffer struct {
	Format PixelFormat
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// Frame bundles one decoded image with its resolved presentation
// timestamp. Once added to a Cache, a Frame is exclusively owned by it:
// the cache invokes the registered disposer exactly once, whether by
// eviction, Clear, or reader Close.
type Frame struct {
	Timestamp int64
	Image     ImageBuffer

	// native is the opaque disposer tag returned by Codec.ConvertCurrent.
	// internal/demux returns nil here, since Image.Pix is already a Go-owned
	// copy; other Codec implementations may return a native allocation
	// handle. pkg/reader never interprets
	// it; only the Disposer supplied to NewCache does. This replaces the
	// original's "boxed pointer in a Bitmap's Tag" hack (SPEC_FULL.md §4.1,
	// Design Note §9) with an ordinary struct field.
	native any

	disposed bool
}

// Disposer releases the native resources behind a Frame's ImageBuffer.
// It must be idempotent-safe to call exactly once per Frame; calling it
// twice on the same Frame is a caller bug (Cache guards against this,
// see cache.go).
type Disposer func(*Frame)

// SetNative attaches the facade-private disposer tag. Called by
// Reader.readFrame with the tag ConvertCurrent returned.
func (f *Frame) SetNative(v any) { f.native = v }

// Native returns the facade-private disposer tag.
func (f *Frame) Native() any { return f.native }
