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

// deinterlacer runs a single-node "yadif" filter graph over decoded
// frames. The original called the long-deprecated avpicture_deinterlace;
// this is the REDESIGN FLAGS replacement, rebuilt whenever the source
// frame's size or pixel format changes and falling back to the
// unfiltered frame whenever the graph fails to build or run.
type deinterlacer struct {
	graph      *astiav.FilterGraph
	buffersrc  *astiav.FilterContext
	buffersink *astiav.FilterContext
	out        *astiav.Frame

	w, h int
	fmt  astiav.PixelFormat
}

func newDeinterlacer() *deinterlacer {
	return &deinterlacer{out: astiav.AllocFrame()}
}

func (d *deinterlacer) ensure(src *astiav.Frame) error {
	if d.graph != nil && d.w == src.Width() && d.h == src.Height() && d.fmt == src.PixelFormat() {
		return nil
	}
	d.teardownGraph()

	graph := astiav.AllocFilterGraph()
	if graph == nil {
		return fmt.Errorf("demux: alloc filter graph")
	}

	args := fmt.Sprintf("video_size=%dx%d:pix_fmt=%d:time_base=1/1:pixel_aspect=1/1",
		src.Width(), src.Height(), int(src.PixelFormat()))

	buffersrc, err := graph.NewFilterContext(astiav.FindFilterByName("buffer"), "in", args)
	if err != nil {
		graph.Free()
		return fmt.Errorf("demux: create buffer source: %w", err)
	}
	buffersink, err := graph.NewFilterContext(astiav.FindFilterByName("buffersink"), "out", "")
	if err != nil {
		graph.Free()
		return fmt.Errorf("demux: create buffer sink: %w", err)
	}
	yadif, err := graph.NewFilterContext(astiav.FindFilterByName("yadif"), "yadif", "mode=0")
	if err != nil {
		graph.Free()
		return fmt.Errorf("demux: create yadif filter: %w", err)
	}

	if err := buffersrc.Link(0, yadif, 0); err != nil {
		graph.Free()
		return fmt.Errorf("demux: link buffer->yadif: %w", err)
	}
	if err := yadif.Link(0, buffersink, 0); err != nil {
		graph.Free()
		return fmt.Errorf("demux: link yadif->sink: %w", err)
	}
	if err := graph.Configure(); err != nil {
		graph.Free()
		return fmt.Errorf("demux: configure filter graph: %w", err)
	}

	d.graph, d.buffersrc, d.buffersink = graph, buffersrc, buffersink
	d.w, d.h, d.fmt = src.Width(), src.Height(), src.PixelFormat()
	return nil
}

// apply runs src through the yadif graph and returns the deinterlaced
// frame. The returned frame is owned by the deinterlacer and is only
// valid until the next call.
func (d *deinterlacer) apply(src *astiav.Frame) (*astiav.Frame, error) {
	if err := d.ensure(src); err != nil {
		return nil, err
	}
	if err := d.buffersrc.BuffersrcAddFrame(src, astiav.NewBuffersrcFlags()); err != nil {
		return nil, fmt.Errorf("demux: feed filter graph: %w", err)
	}
	d.out.Unref()
	if err := d.buffersink.BuffersinkGetFrame(d.out, astiav.NewBuffersinkFlags()); err != nil {
		return nil, fmt.Errorf("demux: read filter graph: %w", err)
	}
	return d.out, nil
}

func (d *deinterlacer) teardownGraph() {
	if d.graph != nil {
		d.graph.Free()
		d.graph = nil
		d.buffersrc = nil
		d.buffersink = nil
	}
}

func (d *deinterlacer) close() {
	d.teardownGraph()
	if d.out != nil {
		d.out.Free()
		d.out = nil
	}
}
