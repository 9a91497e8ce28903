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

// Package reader implements a seekable, random-access video frame reader.
//
// It turns an on-disk compressed video file into a positional sequence of
// decoded, size- and pixel-format-normalized frames, each tagged with a
// stable presentation timestamp in the stream's own time base.
package reader

import "fmt"

// ImageAspectRatio selects how the decoding size's height is derived from
// the source's pixel aspect ratio.
type ImageAspectRatio int

const (
	// Auto derives height from the stream's pixel aspect ratio.
	Auto ImageAspectRatio = iota
	// Force43 forces a 4:3 display aspect ratio.
	Force43
	// Force169 forces a 16:9 display aspect ratio.
	Force169
	// ForcedSquarePixels assumes PAR=1:1 (decoding size == original size).
	ForcedSquarePixels
)

func (r ImageAspectRatio) String() string {
	switch r {
	case Force43:
		return "Force43"
	case Force169:
		return "Force169"
	case ForcedSquarePixels:
		return "ForcedSquarePixels"
	default:
		return "Auto"
	}
}

// Options are mutable between sessions but must stay stable while a
// prefetch worker is running (callers must stop it before changing them).
type Options struct {
	ImageAspectRatio ImageAspectRatio
	Deinterlace      bool
}

// DefaultOptions mirrors the teacher's "Options.Default" convention.
func DefaultOptions() Options {
	return Options{ImageAspectRatio: Auto, Deinterlace: false}
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Rational is a simple numerator/denominator pair, used for the sample
// aspect ratio.
type Rational struct {
	Num int
	Den int
}

// Section is a half-open-in-spirit, inclusive-in-practice timestamp range:
// both Start and End are timestamps that belong to the section. See
// SPEC_FULL.md / DESIGN.md for why End is kept inclusive rather than
// normalized to an exclusive bound.
type Section struct {
	Start int64
	End   int64
}

// EmptySection is the zero-value sentinel used before a video is loaded.
var EmptySection = Section{Start: 0, End: 0}

// Empty reports whether the section carries no usable range.
func (s Section) Empty() bool { return s.Start == 0 && s.End == 0 }

// Contains reports whether ts falls within [Start, End] inclusive.
func (s Section) Contains(ts int64) bool { return ts >= s.Start && ts <= s.End }

func (s Section) String() string { return fmt.Sprintf("[%d, %d]", s.Start, s.End) }

// VideoInfo is produced by Open and is read-only for the lifetime of the
// session.
type VideoInfo struct {
	FilePath string

	FirstTimestamp          int64
	DurationTimestamps      int64
	AverageTimestampsPerSec float64
	AverageTimestampsPerFrame int64
	FramesPerSecond         float64
	FrameIntervalMs         float64

	OriginalSize Size
	DecodingSize Size

	PixelAspectRatio float64
	SampleAspectRatio Rational

	IsCodecMpeg2 bool
	HasKva       bool
}

// AvgTspf is shorthand for AverageTimestampsPerFrame, named the way
// SPEC_FULL.md / spec.md refer to it.
func (vi VideoInfo) AvgTspf() int64 { return vi.AverageTimestampsPerFrame }

// IsImage reports whether the opened file is a single still frame.
func (vi VideoInfo) IsImage() bool { return vi.DurationTimestamps == 1 }

// VideoSummary is returned by ExtractSummary.
type VideoSummary struct {
	IsImage     bool
	HasKva      bool
	ImageSize   Size
	DurationMs  int64
	Thumbnails  []*Frame
}
