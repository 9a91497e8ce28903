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

// Package sink renders reader.Frame images to an on-screen SDL2 window,
// grounded on Luminate-Inc-flow-frame/pkg/mpeg's Player: a single
// streaming texture, locked and memcpy'd into on every new frame,
// generalized from that player's fixed RGBA32/internal-decoder frame
// source to any reader.ImageBuffer the reader facade hands it.
package sink

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/jcharmant/kinoreader/pkg/reader"
)

// Sink owns an SDL2 window, renderer and one streaming texture sized to
// match the currently displayed frame. The texture is recreated whenever
// the frame size changes (aspect ratio change, different source file).
type Sink struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	texW, texH int32
}

// New creates an SDL2 window of the given size titled title. Callers must
// call sdl.Init(sdl.INIT_VIDEO) once at process startup before using Sink,
// and sdl.Quit() at shutdown.
func New(title string, width, height int32) (*Sink, error) {
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		width, height, sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, fmt.Errorf("sink: create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		return nil, fmt.Errorf("sink: create renderer: %w", err)
	}

	return &Sink{window: window, renderer: renderer}, nil
}

// Show uploads img to the streaming texture (recreating it first if img's
// dimensions changed) and presents it, letterboxed to the window's
// current size.
func (s *Sink) Show(img reader.ImageBuffer) error {
	if img.Format != reader.PixelFormatBGRA {
		return fmt.Errorf("sink: unsupported pixel format %v", img.Format)
	}

	if err := s.ensureTexture(int32(img.Width), int32(img.Height)); err != nil {
		return err
	}

	pixels, pitch, err := s.texture.Lock(nil)
	if err != nil {
		return fmt.Errorf("sink: lock texture: %w", err)
	}
	if pitch == img.Stride {
		copy(pixels, img.Pix)
	} else {
		// Row stride differs from the source buffer's; copy row by row
		// rather than assume a tight packing.
		for row := 0; row < img.Height; row++ {
			srcStart, srcEnd := row*img.Stride, row*img.Stride+img.Stride
			dstStart := row * pitch
			copy(pixels[dstStart:dstStart+img.Stride], img.Pix[srcStart:srcEnd])
		}
	}
	s.texture.Unlock()

	dst := s.fitRect(int32(img.Width), int32(img.Height))
	if err := s.renderer.Clear(); err != nil {
		return fmt.Errorf("sink: clear renderer: %w", err)
	}
	if err := s.renderer.Copy(s.texture, nil, dst); err != nil {
		return fmt.Errorf("sink: copy to renderer: %w", err)
	}
	s.renderer.Present()
	return nil
}

func (s *Sink) ensureTexture(w, h int32) error {
	if s.texture != nil && s.texW == w && s.texH == h {
		return nil
	}
	if s.texture != nil {
		s.texture.Destroy()
	}
	tex, err := s.renderer.CreateTexture(uint32(sdl.PIXELFORMAT_BGRA32), sdl.TEXTUREACCESS_STREAMING, w, h)
	if err != nil {
		return fmt.Errorf("sink: create texture: %w", err)
	}
	s.texture, s.texW, s.texH = tex, w, h
	return nil
}

// fitRect letterboxes a texW x texH image into the window's current
// client area, preserving aspect ratio.
func (s *Sink) fitRect(texW, texH int32) *sdl.Rect {
	ww, wh := s.window.GetSize()
	scale := float64(ww) / float64(texW)
	if alt := float64(wh) / float64(texH); alt < scale {
		scale = alt
	}
	dw, dh := int32(float64(texW)*scale), int32(float64(texH)*scale)
	return &sdl.Rect{X: (ww - dw) / 2, Y: (wh - dh) / 2, W: dw, H: dh}
}

// Close releases the texture, renderer, and window.
func (s *Sink) Close() {
	if s.texture != nil {
		s.texture.Destroy()
		s.texture = nil
	}
	if s.renderer != nil {
		s.renderer.Destroy()
		s.renderer = nil
	}
	if s.window != nil {
		s.window.Destroy()
		s.window = nil
	}
}
