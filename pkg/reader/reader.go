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
	"math"
	"sync"

	"github.com/jcharmant/kinoreader/internal/kva"
)

// Reader is the seek-and-decode state machine of spec.md §4.5 (C5). It
// composes a Codec (C4), a TimestampResolver (C2), and a Cache (C3) and
// exposes the reader's whole public surface. A Reader begins unloaded;
// Open transitions it to loaded; Close (idempotent) unloads it.
type Reader struct {
	codec  Codec
	log    Logger
	newCodec func() Codec

	// decoderLock serializes every entry into readFrame, per spec.md §5:
	// "A single mutex serializes every entry into ReadFrame ... foreground
	// and background never run the codec concurrently."
	decoderLock sync.Mutex

	loaded bool
	info   VideoInfo
	opts   Options

	resolver *TimestampResolver
	cache    *Cache

	worker   *prefetchWorker
	canceler *canceler
}

// New constructs an unloaded Reader. newCodec is called once per Open to
// produce a fresh Codec instance (internal/demux.New, in production).
// log may be nil, in which case logging is discarded.
func New(newCodec func() Codec, log Logger) *Reader {
	if log == nil {
		log = nopLogger{}
	}
	r := &Reader{
		newCodec: newCodec,
		log:      log,
		opts:     DefaultOptions(),
		canceler: newCanceler(),
	}
	r.cache = NewCache(r.disposeFrame)
	return r
}

// Options returns the reader's current decode options.
func (r *Reader) Options() Options { return r.opts }

// Info returns the VideoInfo produced by Open. Valid only while loaded.
func (r *Reader) Info() VideoInfo { return r.info }

// Cache exposes a read-only view of the frame cache (playhead, working
// zone, size) per spec.md §6.
func (r *Reader) Cache() *Cache { return r.cache }

// Caching reports whether the prefetch worker is currently running.
func (r *Reader) Caching() bool { return r.worker != nil && r.worker.running() }

func (r *Reader) disposeFrame(f *Frame) {
	if r.codec != nil {
		r.codec.ReleaseNative(f.native)
	}
}

// Open loads path for reading. If a previous session was loaded, it is
// closed first (matching the original's Load(), which closes any
// previously loaded file before opening the new one).
func (r *Reader) Open(path string) OpenResult {
	if r.loaded {
		r.Close()
	}

	codec := r.newCodec()
	info, result := codec.Open(path)
	if result != OpenSuccess {
		r.log.Debugf("open %q failed: %s", path, result)
		return result
	}

	r.codec = codec
	r.info = info
	r.info.DecodingSize = computeDecodingSize(info, r.opts.ImageAspectRatio)
	r.resolver = NewTimestampResolver(r.info.AverageTimestampsPerFrame)
	r.cache.SetWorkingZone(Section{
		Start: r.info.FirstTimestamp,
		End:   r.info.FirstTimestamp + r.info.DurationTimestamps - r.info.AverageTimestampsPerFrame,
	})
	r.loaded = true
	r.log.Debugf("opened %q: %dx%d @ %.3f fps, duration=%d ts", path, info.OriginalSize.Width, info.OriginalSize.Height, info.FramesPerSecond, info.DurationTimestamps)
	return OpenSuccess
}

// OpenErr is a convenience wrapper returning (VideoInfo, error) for
// callers that prefer the Go error idiom over switching on OpenResult.
func (r *Reader) OpenErr(path string) (VideoInfo, error) {
	res := r.Open(path)
	if err := asOpenErr(res); err != nil {
		return VideoInfo{}, err
	}
	return r.info, nil
}

// Close unloads the reader: cancels the prefetch worker, clears the
// cache (disposing every frame exactly once), and releases the codec.
// Idempotent.
func (r *Reader) Close() {
	if !r.loaded {
		return
	}
	if r.worker != nil {
		r.worker.stop()
		r.worker = nil
	}
	r.cache.Clear()
	if r.codec != nil {
		r.codec.Close()
		r.codec = nil
	}
	r.loaded = false
	r.info = VideoInfo{}
	r.cache.SetWorkingZone(EmptySection)
}

// computeDecodingSize mirrors SetDecodingSize in the original: height is
// derived from the chosen aspect ratio policy (width never moves), then
// width is aligned up to a multiple of 4 (spec.md §3 invariant; downstream
// bitmap conversion assumes it).
func computeDecodingSize(info VideoInfo, ratio ImageAspectRatio) Size {
	w := info.OriginalSize.Width
	var h int
	switch ratio {
	case Force43:
		h = int(float64(w) * 3.0 / 4.0)
	case Force169:
		h = int(float64(w) * 9.0 / 16.0)
	case ForcedSquarePixels:
		h = info.OriginalSize.Height
	default: // Auto
		par := info.PixelAspectRatio
		if par == 0 {
			par = 1
		}
		h = int(float64(info.OriginalSize.Height) / par)
	}

	if w%4 != 0 {
		w = 4 * (info.OriginalSize.Width/4 + 1)
	}
	return Size{Width: w, Height: h}
}

// readFrame is the seek-and-decode loop of spec.md §4.5 — the heart of
// the reader. It is called under decoderLock by every public entry point
// that needs to produce frames (MoveTo, MoveNext, ReadMany,
// ExtractSummary, and the prefetch worker).
//
// seekTS == -1 means "no seek, continue decoding forward". framesToDecode
// < 0 means a relative backward move: the target timestamp is computed
// from the resolver's last resolved timestamp (not the cache playhead).
// approximate short-circuits after the first
// decoded frame following a seek (used by ExtractSummary's thumbnails).
func (r *Reader) readFrame(seekTS int64, framesToDecode int, approximate bool) ReadResult {
	r.decoderLock.Lock()
	defer r.decoderLock.Unlock()

	if !r.loaded {
		return ReadMovieNotLoaded
	}

	targetTS := seekTS
	seeking := false

	if framesToDecode < 0 {
		cur := r.resolver.Info().Current
		targetTS = cur + int64(framesToDecode)*r.info.AverageTimestampsPerFrame
		if targetTS < 0 {
			targetTS = 0
		}
	}

	if targetTS >= 0 {
		seeking = true
		framesToDecode = 1
		aps := int64(r.info.AverageTimestampsPerSec)
		if err := r.codec.Seek(0, targetTS, targetTS+aps); err != nil {
			r.log.Errorf("seek error: %v. target was [%d]", err, targetTS)
		}
		r.resolver.Reset()
	}

	decoded := 0
	forceReSeekDone := false

	for {
		finished, dts, pts, err := r.codec.ReadAndDecode()
		if err != nil {
			if err != io.EOF {
				r.log.Debugf("read error: %v", err)
			}
			return ReadFrameNotRead
		}

		if !finished {
			r.resolver.Observe(dts, pts, false)
			continue
		}
		r.resolver.Observe(dts, pts, true)
		current := r.resolver.Info().Current

		if seeking && decoded == 0 && !forceReSeekDone && !approximate && targetTS >= 0 && current > targetTS {
			// Seek-overshoot recovery (spec.md §4.5.d): the container's
			// BACKWARD seek landed after the target. Seek further back
			// and restart decoding from there. Done at most once.
			forceReSeekDone = true
			secondsBack := int64(4)
			forceSeekTS := targetTS - int64(r.info.AverageTimestampsPerSec)*secondsBack
			minTarget := forceSeekTS
			if minTarget > 0 {
				minTarget = 0
			}
			r.log.Debugf("first decoded frame [%d] already after target [%d]; force seek %ds back to [%d]", current, targetTS, secondsBack, forceSeekTS)
			if err := r.codec.Seek(minTarget, forceSeekTS, forceSeekTS); err != nil {
				r.log.Errorf("seek error: %v", err)
			}
			r.resolver.Reset()
			continue
		}

		decoded++

		done := (seeking && current >= targetTS) || (!seeking && decoded >= framesToDecode) || approximate
		if !done {
			continue
		}

		if seeking && current != targetTS {
			r.log.Debugf("seeking to [%d] completed, final position [%d]", targetTS, current)
		}

		img, native, err := r.codec.ConvertCurrent(r.info.DecodingSize, PixelFormatBGRA, r.opts.Deinterlace)
		if err != nil {
			r.log.Errorf("image conversion failed: %v", err)
			return ReadImageNotConverted
		}

		frame := &Frame{Timestamp: current, Image: img}
		frame.SetNative(native)
		r.cache.Add(frame)
		return ReadSuccess
	}
}

// MoveNext advances the playhead by one frame, decoding synchronously if
// necessary (spec.md §4.5 "MoveNext logic"). async should be true when a
// prefetch worker is expected to keep the cache ahead of the playhead.
func (r *Reader) MoveNext(async bool) bool {
	if !r.loaded {
		return false
	}
	if !async && !r.cache.HasNext() {
		r.readFrame(-1, 1, false)
	}
	r.cache.MoveNext()
	cur := r.cache.Current()
	return cur == nil || cur.Timestamp < r.cache.WorkingZone().End
}

// MoveTo positions the playhead at timestamp ts, decoding synchronously
// if necessary (spec.md §4.5 "MoveTo logic"). It returns hasMore, true
// unless the resulting position is at or past the working zone's end.
func (r *Reader) MoveTo(ts int64, async bool) bool {
	if !r.loaded {
		return false
	}

	target := ts
	if !async && !r.cache.Contains(ts) {
		wasRunning := r.Caching()
		if wasRunning {
			r.worker.cancel()
		}

		if !r.cache.IsRolloverJump(ts) {
			r.log.Debugf("out of segment jump, clear cache")
			r.cache.Clear()
		} else {
			r.log.Debugf("rollover jump, unblock decoding thread to cancel it")
			r.cache.RemoveOldest()
		}

		r.readFrame(ts, 1, false)
		target = r.resolver.Info().Current

		if wasRunning {
			r.startAsyncDecoding()
		}
	}

	r.cache.MoveTo(target)
	cur := r.cache.Current()
	return cur == nil || cur.Timestamp < r.cache.WorkingZone().End
}

// ReadMany bulk-fills the cache with every frame in section, without
// moving the playhead (spec.md §4.5). It is used to materialize a
// user-selected working zone ahead of playback. progress, if non-nil, is
// called with (decoded, total) after each frame and may request
// cancellation by returning false.
func (r *Reader) ReadMany(section Section, prepend bool, progress func(done, total int) (keepGoing bool)) bool {
	r.log.Debugf("caching section %s, prepend:%v", section, prepend)

	r.cache.SetPrependBlock(prepend)
	r.cache.DisableCapacityCheck()
	defer func() {
		r.cache.SetPrependBlock(false)
		r.cache.EnableCapacityCheck()
	}()

	total := int((section.End - section.Start + r.info.AverageTimestampsPerFrame) / r.info.AverageTimestampsPerFrame)

	res := r.readFrame(section.Start, 1, false)
	read := 0
	success := res == ReadSuccess
	for success && r.resolver.Info().Current < section.End && read < total {
		if progress != nil && !progress(read, total) {
			r.log.Debugf("cancellation at frame [%d]", r.resolver.Info().Current)
			r.cache.Clear()
			return false
		}
		res = r.readFrame(-1, 1, false)
		success = res == ReadSuccess
		read++
	}
	return success
}

// ExtractSummary opens path standalone (closing any session this Reader
// already had loaded), derives a small set of thumbnails, and closes
// again before returning (spec.md §4.5).
func (r *Reader) ExtractSummary(path string, nThumbs, targetWidth int) (*VideoSummary, error) {
	if res := r.Open(path); res != OpenSuccess {
		return nil, res
	}
	defer r.Close()

	isImage := r.info.IsImage()
	durationMs := int64(float64(r.info.DurationTimestamps) / r.info.AverageTimestampsPerSec * 1000.0)
	imageSize := r.info.OriginalSize
	hasKva := kva.Present(path, r.info.HasKva)

	widthRatio := float64(imageSize.Width) / float64(targetWidth)
	r.info.DecodingSize.Width = targetWidth
	r.info.DecodingSize.Height = int(float64(imageSize.Height) / widthRatio)

	step := int64(math.Ceil(float64(r.info.DurationTimestamps) / float64(nThumbs)))
	var thumbs []*Frame
	lastFrame := int64(-1)

	for ts := int64(0); ts < r.info.DurationTimestamps; ts += step {
		var res ReadResult
		if ts == 0 {
			res = r.readFrame(-1, 1, true)
		} else {
			res = r.readFrame(ts, 1, true)
		}

		current := r.resolver.Info().Current
		if res == ReadSuccess && r.cache.MoveTo(current) && r.cache.Current() != nil && current > lastFrame {
			src := r.cache.Current()
			clone := &Frame{Timestamp: src.Timestamp, Image: cloneImageBuffer(src.Image)}
			thumbs = append(thumbs, clone)
			lastFrame = current
			r.cache.Clear()
		} else {
			r.cache.Clear()
			break
		}
	}

	return &VideoSummary{
		IsImage:    isImage,
		HasKva:     hasKva,
		ImageSize:  imageSize,
		DurationMs: durationMs,
		Thumbnails: thumbs,
	}, nil
}

func cloneImageBuffer(img ImageBuffer) ImageBuffer {
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)
	return ImageBuffer{Format: img.Format, Width: img.Width, Height: img.Height, Stride: img.Stride, Pix: pix}
}

// ReadMetadata scans the subtitle stream for one KVA packet and returns
// its raw payload as text, then rewinds the video stream to 0 (spec.md
// §4.5).
func (r *Reader) ReadMetadata() (string, error) {
	if !r.loaded {
		return "", ReadMovieNotLoaded
	}
	text, found, err := r.codec.ReadSubtitleText()
	if err != nil {
		return "", err
	}
	if err := r.codec.SeekVideoToZero(); err != nil {
		r.log.Errorf("seek to 0 failed: %v", err)
	}
	if !found {
		return "", nil
	}
	return text, nil
}

// ChangeAspectRatio updates the image aspect ratio policy, recomputes the
// decoding size, and clears the cache. The caller must ensure the
// prefetch worker is stopped first (spec.md §4.5/§5).
func (r *Reader) ChangeAspectRatio(ratio ImageAspectRatio) {
	r.opts.ImageAspectRatio = ratio
	r.info.DecodingSize = computeDecodingSize(r.info, ratio)
	r.cache.Clear()
}

// ChangeDeinterlace toggles deinterlacing and clears the cache. The
// caller must ensure the prefetch worker is stopped first.
func (r *Reader) ChangeDeinterlace(v bool) {
	r.opts.Deinterlace = v
	r.cache.Clear()
}

// CanCacheWorkingZone reports whether section can be cached within
// maxSeconds of playback time and maxMegabytes of frame memory (spec.md
// §4.5; see DESIGN.md for the MB-vs-bytes Open Question resolution).
func (r *Reader) CanCacheWorkingZone(section Section, maxSeconds, maxMegabytes int) bool {
	durationSec := float64(section.End-section.Start) / r.info.AverageTimestampsPerSec
	frameBytes := r.info.DecodingSize.Width * r.info.DecodingSize.Height * 4 // BGRA
	perFrameMB := float64(frameBytes) / (1024 * 1024)
	totalMB := durationSec * r.info.FramesPerSecond * perFrameMB
	return durationSec > 0 && durationSec <= float64(maxSeconds) && totalMB <= float64(maxMegabytes)
}

// StartAsyncDecoding starts the prefetch worker, if it is not already
// running (spec.md §4.6). If Caching already reports a running worker,
// it returns without starting a second one.
func (r *Reader) StartAsyncDecoding() { r.startAsyncDecoding() }

func (r *Reader) startAsyncDecoding() {
	if r.Caching() {
		return
	}
	r.log.Debugf("starting decoding thread")
	r.canceler.Reset()
	r.worker = newPrefetchWorker(r, r.canceler, r.log)
	r.worker.start()
}

// CancelAsyncDecoding requests that the prefetch worker stop.
func (r *Reader) CancelAsyncDecoding() {
	if r.worker != nil {
		r.worker.cancel()
	}
}
