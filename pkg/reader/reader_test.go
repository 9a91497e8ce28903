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

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePacket is one entry in a fakeCodec's scripted packet stream.
type fakePacket struct {
	dts, pts int64
	finished bool // whether ReadAndDecode should report a decoded picture
}

// fakeCodec is a deterministic, in-memory stand-in for internal/demux's
// astiav-backed Codec, driven entirely by a scripted packet timeline. It
// lets Reader's state machine (seeking, overshoot recovery, termination
// conditions) be exercised without any real container or codec library.
type fakeCodec struct {
	info VideoInfo

	packets []fakePacket // the full decode-order timeline
	pos     int          // index of the next packet ReadAndDecode will emit

	seekCount   int
	lastSeekMin int64
	lastSeekTgt int64
	lastSeekMax int64

	disposed []any
	opened   bool
}

func (f *fakeCodec) Open(path string) (VideoInfo, OpenResult) {
	f.opened = true
	f.info.FilePath = path
	return f.info, OpenSuccess
}

func (f *fakeCodec) Close() { f.opened = false }

// Seek relocates pos to the packet whose dts is the nearest one at or
// before target, mimicking a keyframe-aligned backward container seek.
func (f *fakeCodec) Seek(min, target, max int64) error {
	f.seekCount++
	f.lastSeekMin, f.lastSeekTgt, f.lastSeekMax = min, target, max
	f.pos = 0
	for i, p := range f.packets {
		if p.dts <= target {
			f.pos = i
		}
	}
	return nil
}

func (f *fakeCodec) ReadAndDecode() (bool, int64, int64, error) {
	if f.pos >= len(f.packets) {
		return false, 0, 0, io.EOF
	}
	p := f.packets[f.pos]
	f.pos++
	return p.finished, p.dts, p.pts, nil
}

func (f *fakeCodec) ConvertCurrent(target Size, format PixelFormat, deinterlace bool) (ImageBuffer, any, error) {
	tag := new(int)
	return ImageBuffer{Format: format, Width: target.Width, Height: target.Height, Stride: target.Width * 4, Pix: make([]byte, target.Width*target.Height*4)}, tag, nil
}

func (f *fakeCodec) ReleaseNative(tag any) { f.disposed = append(f.disposed, tag) }

func (f *fakeCodec) ReadSubtitleText() (string, bool, error) { return "", false, nil }

func (f *fakeCodec) SeekVideoToZero() error { f.seekCount++; f.pos = 0; return nil }

func linearFakeCodec(frameCount int, tspf int64) *fakeCodec {
	packets := make([]fakePacket, frameCount)
	for i := range packets {
		ts := int64(i) * tspf
		packets[i] = fakePacket{dts: ts, pts: ts, finished: true}
	}
	return &fakeCodec{
		packets: packets,
		info: VideoInfo{
			DurationTimestamps:        int64(frameCount) * tspf,
			AverageTimestampsPerFrame: tspf,
			AverageTimestampsPerSec:   float64(tspf) * 25.0,
			FramesPerSecond:           25.0,
			OriginalSize:              Size{Width: 640, Height: 480},
			PixelAspectRatio:          1.0,
		},
	}
}

func newTestReader(codec *fakeCodec) *Reader {
	return New(func() Codec { return codec }, nil)
}

func TestReaderOpenPopulatesInfo(t *testing.T) {
	codec := linearFakeCodec(10, 1000)
	r := newTestReader(codec)

	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))
	assert.Equal(t, 640, r.Info().OriginalSize.Width)
	assert.Equal(t, Size{Width: 640, Height: 480}, r.Info().DecodingSize, "Auto + square pixel aspect ratio keeps the original size")
	assert.True(t, codec.opened)
}

func TestReaderCloseIsIdempotentAndDisposesFrames(t *testing.T) {
	codec := linearFakeCodec(10, 1000)
	r := newTestReader(codec)
	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))

	r.MoveTo(0, false)
	assert.Equal(t, 1, r.Cache().Size())

	r.Close()
	assert.Equal(t, 0, r.Cache().Size())
	assert.False(t, codec.opened)
	assert.Len(t, codec.disposed, 1)

	r.Close() // idempotent
}

func TestReaderMoveToLinearPlayback(t *testing.T) {
	codec := linearFakeCodec(10, 1000)
	r := newTestReader(codec)
	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))

	assert.True(t, r.MoveTo(0, false))
	assert.Equal(t, int64(0), r.Cache().Current().Timestamp)

	assert.True(t, r.MoveTo(3000, false))
	assert.Equal(t, int64(3000), r.Cache().Current().Timestamp)
}

func TestReaderMoveNextAdvancesAndDecodesOnDemand(t *testing.T) {
	codec := linearFakeCodec(5, 1000)
	r := newTestReader(codec)
	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))

	require.True(t, r.MoveTo(0, false))
	for i := int64(1); i < 4; i++ {
		hasMore := r.MoveNext(false)
		assert.True(t, hasMore)
		assert.Equal(t, i*1000, r.Cache().Current().Timestamp)
	}
}

func TestReaderMoveToBackwardJumpReseeks(t *testing.T) {
	codec := linearFakeCodec(20, 1000)
	r := newTestReader(codec)
	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))

	require.True(t, r.MoveTo(15000, false))
	require.True(t, r.MoveTo(2000, false))
	assert.Equal(t, int64(2000), r.Cache().Current().Timestamp)
	assert.GreaterOrEqual(t, codec.seekCount, 2)
}

func TestReaderReadManyFillsSectionWithoutMovingPlayhead(t *testing.T) {
	codec := linearFakeCodec(20, 1000)
	r := newTestReader(codec)
	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))

	ok := r.ReadMany(Section{Start: 0, End: 5000}, false, nil)
	assert.True(t, ok)
	assert.Equal(t, 6, r.Cache().Size())
}

func TestReaderReadManyCancelsAndClearsCache(t *testing.T) {
	codec := linearFakeCodec(20, 1000)
	r := newTestReader(codec)
	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))

	calls := 0
	ok := r.ReadMany(Section{Start: 0, End: 10000}, false, func(done, total int) bool {
		calls++
		return calls < 3
	})
	assert.False(t, ok)
	assert.Equal(t, 0, r.Cache().Size())
}

func TestReaderChangeAspectRatioRecomputesDecodingSizeAndClearsCache(t *testing.T) {
	codec := linearFakeCodec(10, 1000)
	codec.info.PixelAspectRatio = 2.0
	r := newTestReader(codec)
	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))
	require.True(t, r.MoveTo(0, false))
	require.Equal(t, 1, r.Cache().Size())

	r.ChangeAspectRatio(ForcedSquarePixels)
	assert.Equal(t, 480, r.Info().DecodingSize.Height)
	assert.Equal(t, 0, r.Cache().Size(), "changing decoding parameters invalidates cached frames")
}

func TestReaderCanCacheWorkingZoneRespectsBudget(t *testing.T) {
	codec := linearFakeCodec(1000, 1000)
	r := newTestReader(codec)
	require.Equal(t, OpenSuccess, r.Open("movie.mp4"))

	assert.True(t, r.CanCacheWorkingZone(Section{Start: 0, End: 5000}, 60, 4096))
	assert.False(t, r.CanCacheWorkingZone(Section{Start: 0, End: 5000}, 0, 4096), "zero-second budget never fits")
}

func TestReaderExtractSummaryReturnsThumbnailsAndClosesAfterwards(t *testing.T) {
	codec := linearFakeCodec(100, 1000)
	r := newTestReader(codec)

	summary, err := r.ExtractSummary("movie.mp4", 4, 160)
	require.NoError(t, err)
	assert.False(t, summary.IsImage)
	assert.NotEmpty(t, summary.Thumbnails)
	assert.False(t, codec.opened, "ExtractSummary must close the session it opened")
}

func TestReaderOpenFailurePropagatesResult(t *testing.T) {
	codec := linearFakeCodec(1, 1000)
	r := New(func() Codec {
		return &failingCodec{fakeCodec: codec, result: OpenCodecNotFound}
	}, nil)

	assert.Equal(t, OpenCodecNotFound, r.Open("bad.mp4"))
}

type failingCodec struct {
	*fakeCodec
	result OpenResult
}

func (f *failingCodec) Open(path string) (VideoInfo, OpenResult) { return VideoInfo{}, f.result }
