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

// Package demux implements reader.Codec over github.com/asticode/go-astiav,
// the same codec binding the teacher repo uses for its RTSP camera feeds.
// Unlike the teacher, which decodes forward-only from a live stream, this
// package exists to make the container seekable: open, probe, seek to an
// arbitrary backward timestamp, and decode one frame at a time.
package demux

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/asticode/go-astiav"

	"github.com/jcharmant/kinoreader/pkg/reader"
)

// Decoder is the concrete reader.Codec implementation. It owns exactly one
// open container at a time; Open on an already-open Decoder closes the
// previous one first.
type Decoder struct {
	fc *astiav.FormatContext

	videoIdx int
	videoStr *astiav.Stream
	videoCtx *astiav.CodecContext

	subIdx int // -1 if no KVA subtitle stream was detected

	pkt   *astiav.Packet
	frame *astiav.Frame

	scaler *bgraScaler
	deint  *deinterlacer

	avgTspf int64 // cached AverageTimestampsPerFrame, for SeekVideoToZero bookkeeping
}

// New constructs an unopened Decoder. Matches reader.New's
// func() reader.Codec factory signature.
func New() *Decoder {
	return &Decoder{subIdx: -1}
}

// Open probes path and selects streams per the highest-nb_frames rule,
// generalizing the teacher's "first stream of this MediaType wins" loop
// in openAndDecode (video.go) to the spec's stronger selection rule.
func (d *Decoder) Open(path string) (reader.VideoInfo, reader.OpenResult) {
	if d.fc != nil {
		d.Close()
	}

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return reader.VideoInfo{}, asOpenResult(errOpenFailed)
	}

	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return reader.VideoInfo{}, asOpenResult(errOpenFailed)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.Free()
		fc.CloseInput()
		return reader.VideoInfo{}, asOpenResult(errStreamInfo)
	}

	videoIdx, subIdx := selectStreams(fc)
	if videoIdx < 0 {
		fc.Free()
		fc.CloseInput()
		return reader.VideoInfo{}, asOpenResult(errNoVideoStream)
	}

	videoStr := fc.Streams()[videoIdx]
	vpar := videoStr.CodecParameters()

	vdec := astiav.FindDecoder(vpar.CodecID())
	if vdec == nil {
		fc.Free()
		fc.CloseInput()
		return reader.VideoInfo{}, asOpenResult(errCodecNotFound)
	}
	vctx := astiav.AllocCodecContext(vdec)
	if vctx == nil {
		fc.Free()
		fc.CloseInput()
		return reader.VideoInfo{}, asOpenResult(errCodecNotFound)
	}
	if err := vpar.ToCodecContext(vctx); err != nil {
		vctx.Free()
		fc.Free()
		fc.CloseInput()
		return reader.VideoInfo{}, asOpenResult(errCodecNotOpened)
	}
	if err := vctx.Open(vdec, nil); err != nil {
		vctx.Free()
		fc.Free()
		fc.CloseInput()
		return reader.VideoInfo{}, asOpenResult(errCodecNotOpened)
	}

	info := buildVideoInfo(path, fc, videoStr, vctx, subIdx >= 0)

	d.fc = fc
	d.videoIdx = videoIdx
	d.videoStr = videoStr
	d.videoCtx = vctx
	d.subIdx = subIdx
	d.pkt = astiav.AllocPacket()
	d.frame = astiav.AllocFrame()
	d.scaler = newBGRAScaler()
	d.deint = newDeinterlacer()
	d.avgTspf = info.AverageTimestampsPerFrame

	return info, reader.OpenSuccess
}

// selectStreams picks the video stream with the highest NbFrames and, if
// present, a subtitle stream whose codec is plain text with a "language"
// tag of "XML" — the KVA detection rule spec.md §9 flags as non-obvious
// but requires preserving verbatim.
func selectStreams(fc *astiav.FormatContext) (videoIdx, subIdx int) {
	videoIdx, subIdx = -1, -1
	var bestFrames int64 = -1

	for i, s := range fc.Streams() {
		par := s.CodecParameters()
		switch par.MediaType() {
		case astiav.MediaTypeVideo:
			if n := s.NbFrames(); n > bestFrames {
				bestFrames = n
				videoIdx = i
			}
		case astiav.MediaTypeSubtitle:
			if par.CodecID() == astiav.CodecIDText && streamLanguage(s) == "XML" {
				subIdx = i
			}
		}
	}
	return videoIdx, subIdx
}

// streamLanguage reads the "language" metadata tag off a stream, the
// KVA-sidecar-inside-the-container marker spec.md §9 preserves verbatim.
func streamLanguage(s *astiav.Stream) string {
	entry := s.Metadata().Get("language", nil, astiav.NewDictionaryFlags())
	if entry == nil {
		return ""
	}
	return entry.Value()
}

// buildVideoInfo derives VideoInfo per spec.md §4.4's FPS waterfall and
// PAR/SAR rules.
func buildVideoInfo(path string, fc *astiav.FormatContext, vst *astiav.Stream, vctx *astiav.CodecContext, hasKva bool) reader.VideoInfo {
	tb := vst.TimeBase()
	tbNum, tbDen := int64(tb.Num()), int64(tb.Den())
	if tbNum == 0 {
		tbNum = 1
	}

	fps := estimateFPS(vst, vctx, tbNum, tbDen)
	avgTspf := int64(0)
	if fps > 0 {
		avgTspf = int64(math.Round(float64(tbDen) / float64(tbNum) / fps))
	}
	if avgTspf <= 0 {
		avgTspf = 1
	}
	aps := float64(tbDen) / float64(tbNum)

	duration := vst.Duration()
	if duration <= 0 {
		duration = rescaleDuration(fc.Duration(), tbNum, tbDen)
	}

	codecPar := vst.CodecParameters()
	par, isMpeg2 := estimatePAR(codecPar)

	return reader.VideoInfo{
		FilePath:                  path,
		FirstTimestamp:            vst.StartTime(),
		DurationTimestamps:        duration,
		AverageTimestampsPerSec:   aps,
		AverageTimestampsPerFrame: avgTspf,
		FramesPerSecond:           fps,
		FrameIntervalMs:           1000.0 / fps,
		OriginalSize:              reader.Size{Width: codecPar.Width(), Height: codecPar.Height()},
		PixelAspectRatio:          par,
		SampleAspectRatio:         reader.Rational{Num: codecPar.SampleAspectRatio().Num(), Den: codecPar.SampleAspectRatio().Den()},
		IsCodecMpeg2:              isMpeg2,
		HasKva:                    hasKva,
	}
}

// estimateFPS implements spec.md §4.4's waterfall, stopping at the first
// tier that yields a plausible value (< 1000), then applying the two
// magic-value corrections.
func estimateFPS(vst *astiav.Stream, vctx *astiav.CodecContext, tbNum, tbDen int64) float64 {
	ticksPerFrame := int64(vctx.TicksPerFrame())
	if ticksPerFrame < 1 {
		ticksPerFrame = 1
	}

	if r := vst.AvgFrameRate(); r.Num() > 0 && r.Den() > 0 {
		if fps := float64(r.Num()) / float64(r.Den()); fps > 0 && fps < 1000 {
			return correctMagicFPS(fps)
		}
	}

	if nb := vst.NbFrames(); nb > 0 {
		if d := vst.Duration(); d > 0 {
			fps := float64(nb) * float64(tbDen) / float64(tbNum) / float64(d)
			if ticksPerFrame > 1 {
				fps /= float64(ticksPerFrame)
			}
			if fps > 0 && fps < 1000 {
				return correctMagicFPS(fps)
			}
		}
	}

	if tbNum > 0 {
		fps := float64(tbDen) / float64(tbNum)
		if ticksPerFrame > 1 {
			fps /= float64(ticksPerFrame)
		}
		if fps > 0 && fps < 1000 {
			return correctMagicFPS(fps)
		}
	}

	if ctb := vctx.TimeBase(); ctb.Num() > 0 {
		fps := float64(ctb.Den()) / float64(ctb.Num())
		if ticksPerFrame > 1 {
			fps /= float64(ticksPerFrame)
		}
		if fps > 0 && fps < 1000 {
			return correctMagicFPS(fps)
		}
	}

	return 25.0
}

func correctMagicFPS(fps float64) float64 {
	switch int(math.Round(fps)) {
	case 30000:
		return 29.97
	case 25000:
		return 24.975
	default:
		return fps
	}
}

// estimatePAR implements spec.md §4.4's pixel-aspect-ratio derivation,
// including the MPEG-2-SAR-actually-encodes-DAR correction.
func estimatePAR(codecPar *astiav.CodecParameters) (par float64, isMpeg2 bool) {
	isMpeg2 = codecPar.CodecID() == astiav.CodecIDMpeg2Video
	sar := codecPar.SampleAspectRatio()
	if sar.Num() == 0 || sar.Den() == 0 || sar.Num() == sar.Den() {
		return 1.0, isMpeg2
	}

	sarVal := float64(sar.Num()) / float64(sar.Den())
	if !isMpeg2 {
		return sarVal, isMpeg2
	}

	w := float64(codecPar.Width())
	h := float64(codecPar.Height())
	dar := sarVal
	derived := (h * dar) / w
	if derived < 1.0 {
		return dar, isMpeg2
	}
	return derived, isMpeg2
}

func rescaleDuration(containerDuration int64, tbNum, tbDen int64) int64 {
	if containerDuration <= 0 {
		return 0
	}
	// containerDuration is in AV_TIME_BASE (microseconds); rescale into
	// the stream's own time base.
	return containerDuration * tbDen / (tbNum * 1_000_000)
}

// Close releases every native resource. Idempotent.
func (d *Decoder) Close() {
	if d.deint != nil {
		d.deint.close()
		d.deint = nil
	}
	if d.scaler != nil {
		d.scaler.close()
		d.scaler = nil
	}
	if d.frame != nil {
		d.frame.Free()
		d.frame = nil
	}
	if d.pkt != nil {
		d.pkt.Free()
		d.pkt = nil
	}
	if d.videoCtx != nil {
		d.videoCtx.Free()
		d.videoCtx = nil
	}
	if d.fc != nil {
		d.fc.CloseInput()
		d.fc.Free()
		d.fc = nil
	}
}

// Seek performs a coarse BACKWARD seek to the nearest keyframe at or
// before target, then flushes the decoder — the astiav counterpart of
// the original's avformat_seek_file + avcodec_flush_buffers pair
// (REDESIGN FLAGS).
func (d *Decoder) Seek(min, target, max int64) error {
	if err := d.fc.SeekFile(d.videoIdx, min, target, max, astiav.SeekFlagBackward); err != nil {
		return fmt.Errorf("demux: seek to %d: %w", target, err)
	}
	d.videoCtx.FlushBuffers()
	return nil
}

// ReadAndDecode reads the next video packet (transparently skipping
// packets belonging to any other stream) and feeds it to the decoder, one
// SendPacket/ReceiveFrame step per call — generalized from the teacher's
// "drain every buffered frame per packet" loop to the spec's
// single-decoded-picture-per-call contract.
func (d *Decoder) ReadAndDecode() (finished bool, dts, pts int64, err error) {
	d.frame.Unref()

	for {
		if err := d.fc.ReadFrame(d.pkt); err != nil {
			if errors.Is(err, io.EOF) {
				return false, 0, 0, io.EOF
			}
			return false, 0, 0, fmt.Errorf("demux: read frame: %w", err)
		}

		if d.pkt.StreamIndex() != d.videoIdx {
			d.pkt.Unref()
			continue
		}

		dts, pts = normalizeTS(d.pkt.Dts()), normalizeTS(d.pkt.Pts())

		sendErr := d.videoCtx.SendPacket(d.pkt)
		d.pkt.Unref()
		if sendErr != nil && !errors.Is(sendErr, astiav.ErrEagain) {
			return false, dts, pts, fmt.Errorf("demux: send packet: %w", sendErr)
		}

		recvErr := d.videoCtx.ReceiveFrame(d.frame)
		if recvErr != nil {
			if errors.Is(recvErr, astiav.ErrEagain) || errors.Is(recvErr, astiav.ErrEof) {
				return false, dts, pts, nil
			}
			return false, dts, pts, fmt.Errorf("demux: receive frame: %w", recvErr)
		}
		return true, dts, pts, nil
	}
}

// normalizeTS maps astiav's AV_NOPTS_VALUE and any other negative
// timestamp to reader.NoPTS, the sentinel pkg/reader's TimestampResolver
// expects.
func normalizeTS(ts int64) int64 {
	if ts == astiav.NoPtsValue || ts < 0 {
		return reader.NoPTS
	}
	return ts
}

// ConvertCurrent deinterlaces (if requested) and rescales the frame most
// recently filled by ReceiveFrame, grounded on the teacher's bgraScaler
// (generalized from a fixed-size passthrough to the caller-supplied
// target size/format).
func (d *Decoder) ConvertCurrent(target reader.Size, format reader.PixelFormat, deinterlace bool) (reader.ImageBuffer, any, error) {
	src := d.frame
	if deinterlace {
		filtered, err := d.deint.apply(src)
		if err != nil {
			// Best-effort: fall back to the unfiltered frame, exactly as
			// the original fell back to the undeinterlaced picture on
			// avpicture_deinterlace failure.
			filtered = src
		}
		src = filtered
	}

	w, h, pix, err := d.scaler.toBuffer(src, target.Width, target.Height)
	if err != nil {
		return reader.ImageBuffer{}, nil, err
	}

	buf := reader.ImageBuffer{
		Format: format,
		Width:  w,
		Height: h,
		Stride: w * 4,
		Pix:    pix,
	}
	// The Go slice is a private copy (ImageCopyToBuffer), so there is no
	// native allocation left to track; ReleaseNative is a no-op for it.
	return buf, nil, nil
}

// ReleaseNative is a no-op: ConvertCurrent already copies pixels into a
// plain Go slice, so a Frame's native tag never actually owns astiav
// memory. Kept to satisfy reader.Codec and to document that choice.
func (d *Decoder) ReleaseNative(tag any) {}

// ReadSubtitleText scans forward on the KVA subtitle stream (if one was
// detected at Open) for the next packet and returns its payload as text.
func (d *Decoder) ReadSubtitleText() (string, bool, error) {
	if d.subIdx < 0 {
		return "", false, nil
	}
	pkt := astiav.AllocPacket()
	defer pkt.Free()

	for {
		if err := d.fc.ReadFrame(pkt); err != nil {
			if errors.Is(err, io.EOF) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("demux: read subtitle packet: %w", err)
		}
		if pkt.StreamIndex() != d.subIdx {
			pkt.Unref()
			continue
		}
		data, err := pkt.Data()
		pkt.Unref()
		if err != nil {
			return "", false, fmt.Errorf("demux: subtitle packet data: %w", err)
		}
		return string(data), true, nil
	}
}

// SeekVideoToZero rewinds the video stream to timestamp 0, used by
// ReadMetadata once it has consumed the subtitle packet it wanted.
func (d *Decoder) SeekVideoToZero() error {
	return d.Seek(0, 0, d.avgTspf)
}

var (
	errOpenFailed     = errors.New("demux: open failed")
	errStreamInfo     = errors.New("demux: stream info not found")
	errNoVideoStream  = errors.New("demux: no video stream")
	errCodecNotFound  = errors.New("demux: codec not found")
	errCodecNotOpened = errors.New("demux: codec not opened")
)

func asOpenResult(err error) reader.OpenResult {
	switch err {
	case errOpenFailed:
		return reader.OpenFileNotOpened
	case errStreamInfo:
		return reader.OpenStreamInfoNotFound
	case errNoVideoStream:
		return reader.OpenVideoStreamNotFound
	case errCodecNotFound:
		return reader.OpenCodecNotFound
	case errCodecNotOpened:
		return reader.OpenCodecNotOpened
	default:
		return reader.OpenFileNotOpened
	}
}

var _ reader.Codec = (*Decoder)(nil)
