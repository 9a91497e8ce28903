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

// NoPTS is the sentinel a Codec implementation must report for a
// dts/pts value the container did not provide, mirroring AV_NOPTS_VALUE.
const NoPTS = noPTS

// Codec is the demuxer/decoder facade boundary (spec.md §4.4, C4). Reader
// (C5) composes a Codec with a TimestampResolver (C2) and a Cache (C3);
// it never touches the underlying codec library directly. internal/demux
// provides the concrete implementation over github.com/asticode/go-astiav.
//
// All methods operate on "the" open video stream; Codec is responsible
// for stream selection (highest nb_frames video stream; optional KVA
// subtitle stream) during Open.
type Codec interface {
	// Open opens path, probes streams, and returns the derived VideoInfo.
	// A non-success OpenResult means the Codec has released any partial
	// state and Open may be called again with a different path.
	Open(path string) (VideoInfo, OpenResult)

	// Close releases the format/codec contexts. Idempotent.
	Close()

	// Seek performs a coarse seek to the nearest keyframe at or before
	// target, within [min, max], using the container's BACKWARD flag,
	// then flushes decoder buffers. Per spec.md §4.5 step 1.
	Seek(min, target, max int64) error

	// ReadAndDecode reads the next video packet (transparently skipping
	// packets from other streams) and feeds it to the decoder.
	//
	// finished reports whether the decoder emitted a picture for this
	// packet (false means libav is only buffering it in its reorder
	// queue). dts/pts are the packet's metadata, or NoPTS if absent.
	// err is non-nil only on a hard read failure (including end of
	// stream), which Reader maps to ReadFrameNotRead.
	ReadAndDecode() (finished bool, dts, pts int64, err error)

	// ConvertCurrent deinterlaces (if requested) and rescales the frame
	// most recently emitted by ReadAndDecode into the given target size
	// and pixel format, returning the resulting image buffer and an
	// opaque disposer tag to attach to the Frame (see frame.go).
	ConvertCurrent(target Size, format PixelFormat, deinterlace bool) (ImageBuffer, any, error)

	// ReleaseNative frees whatever ConvertCurrent's disposer tag refers
	// to. Used as the Cache's Disposer (by way of Reader).
	ReleaseNative(tag any)

	// ReadSubtitleText scans forward for the next packet on the KVA
	// subtitle stream (if one was detected at Open) and returns its raw
	// payload as text. found is false if there is no subtitle stream or
	// the stream is exhausted without yielding a packet.
	ReadSubtitleText() (text string, found bool, err error)

	// SeekVideoToZero seeks the video stream back to timestamp 0, used by
	// ReadMetadata once it has read the subtitle packet it wanted.
	SeekVideoToZero() error
}
