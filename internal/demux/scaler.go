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

package demux

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// bgraScaler wraps an astiav software scale context, lazily (re)built
// whenever the source size/format or the requested target size changes.
// Grounded directly on the teacher's bgraScaler in video.go, generalized
// from a fixed camera frame size to an arbitrary, caller-chosen target
// (pkg/reader's computeDecodingSize result).
type bgraScaler struct {
	ctx *astiav.SoftwareScaleContext
	dst *astiav.Frame

	srcW, srcH int
	srcFmt     astiav.PixelFormat
	dstW, dstH int
}

func newBGRAScaler() *bgraScaler {
	return &bgraScaler{dst: astiav.AllocFrame()}
}

// ensure (re)allocates the scale context and destination frame if the
// source or target dimensions/format have changed since the last call.
func (s *bgraScaler) ensure(src *astiav.Frame, dstW, dstH int) error {
	if s.ctx != nil && s.srcW == src.Width() && s.srcH == src.Height() &&
		s.srcFmt == src.PixelFormat() && s.dstW == dstW && s.dstH == dstH {
		return nil
	}

	if s.ctx != nil {
		s.ctx.Free()
		s.ctx = nil
	}

	ctx, err := astiav.CreateSoftwareScaleContext(
		src.Width(), src.Height(), src.PixelFormat(),
		dstW, dstH, astiav.PixelFormatBgra,
		astiav.NewSoftwareScaleContextFlags(), // default (bilinear)
	)
	if err != nil {
		return fmt.Errorf("demux: create scale context: %w", err)
	}

	s.dst.Unref()
	s.dst.SetWidth(dstW)
	s.dst.SetHeight(dstH)
	s.dst.SetPixelFormat(astiav.PixelFormatBgra)
	if err := s.dst.AllocBuffer(1); err != nil {
		ctx.Free()
		return fmt.Errorf("demux: alloc destination buffer: %w", err)
	}

	s.ctx = ctx
	s.srcW, s.srcH, s.srcFmt = src.Width(), src.Height(), src.PixelFormat()
	s.dstW, s.dstH = dstW, dstH
	return nil
}

// toBuffer scales src into a BGRA destination frame and copies the result
// into a fresh Go-owned byte slice, so the caller's ImageBuffer never
// aliases astiav-managed memory.
func (s *bgraScaler) toBuffer(src *astiav.Frame, dstW, dstH int) (w, h int, pix []byte, err error) {
	if err := s.ensure(src, dstW, dstH); err != nil {
		return 0, 0, nil, err
	}
	if err := s.ctx.ScaleFrame(src, s.dst); err != nil {
		return 0, 0, nil, fmt.Errorf("demux: scale frame: %w", err)
	}

	size, err := s.dst.ImageBufferSize(1)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("demux: image buffer size: %w", err)
	}
	buf := make([]byte, size)
	if _, err := s.dst.ImageCopyToBuffer(buf, 1); err != nil {
		return 0, 0, nil, fmt.Errorf("demux: copy image buffer: %w", err)
	}
	return dstW, dstH, buf, nil
}

func (s *bgraScaler) close() {
	if s.ctx != nil {
		s.ctx.Free()
		s.ctx = nil
	}
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
}
