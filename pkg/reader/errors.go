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

// OpenResult is the typed outcome of Open. Callers switch on it the way
// spec.md's external interface (§6) describes. It also implements error,
// so Reader.OpenErr can hand a failure back as a plain error value for the
// `if _, err := r.OpenErr(path); err != nil` idiom.
type OpenResult int

const (
	OpenSuccess OpenResult = iota
	OpenFileNotOpened
	OpenStreamInfoNotFound
	OpenVideoStreamNotFound
	OpenCodecNotFound
	OpenCodecNotOpened
)

func (r OpenResult) String() string {
	switch r {
	case OpenSuccess:
		return "Success"
	case OpenFileNotOpened:
		return "FileNotOpened"
	case OpenStreamInfoNotFound:
		return "StreamInfoNotFound"
	case OpenVideoStreamNotFound:
		return "VideoStreamNotFound"
	case OpenCodecNotFound:
		return "CodecNotFound"
	case OpenCodecNotOpened:
		return "CodecNotOpened"
	default:
		return "Unknown"
	}
}

// Error implements error. OpenSuccess.Error() is never called in practice
// (callers check err == nil via asOpenErr), but is defined for completeness.
func (r OpenResult) Error() string { return "open: " + r.String() }

// asOpenErr converts a non-success OpenResult into an error, or returns nil.
func asOpenErr(r OpenResult) error {
	if r == OpenSuccess {
		return nil
	}
	return r
}

// ReadResult is the typed outcome of a decode step (ReadFrame and its
// callers: MoveTo, MoveNext, ReadMany, ExtractSummary).
type ReadResult int

const (
	ReadSuccess ReadResult = iota
	ReadMovieNotLoaded
	ReadFrameNotRead
	ReadMemoryNotAllocated
	ReadImageNotConverted
)

func (r ReadResult) String() string {
	switch r {
	case ReadSuccess:
		return "Success"
	case ReadMovieNotLoaded:
		return "MovieNotLoaded"
	case ReadFrameNotRead:
		return "FrameNotRead"
	case ReadMemoryNotAllocated:
		return "MemoryNotAllocated"
	case ReadImageNotConverted:
		return "ImageNotConverted"
	default:
		return "Unknown"
	}
}

func (r ReadResult) Error() string { return "read: " + r.String() }

func asReadErr(r ReadResult) error {
	if r == ReadSuccess {
		return nil
	}
	return r
}
