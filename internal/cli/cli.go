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

// Package cli implements kinoreader's subcommands, wiring
// internal/config, internal/videofs, internal/demux, and internal/sink
// around pkg/reader. Structured the way
// wnielson-go-mediainfo/cmd/mediainfo delegates out of main into an
// internal/cli package, generalized from that package's single
// "analyze one or more files and print a report" command into a small
// command set (info, thumbs, play).
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/jcharmant/kinoreader/internal/config"
	"github.com/jcharmant/kinoreader/internal/demux"
	"github.com/jcharmant/kinoreader/internal/sink"
	"github.com/jcharmant/kinoreader/internal/videofs"
	"github.com/jcharmant/kinoreader/pkg/reader"
)

// Version is set by cmd/kinoreader/main.go at init time.
var Version = "dev"

// Env bundles everything a subcommand needs to resolve a path and open a
// reader session.
type Env struct {
	Out      io.Writer
	Err      io.Writer
	Config   config.AppConfig
	Resolver *videofs.Resolver
}

// openReader resolves src (possibly an s3:// URI) and opens it for
// reading, applying the named preset's options if one was given.
func (e *Env) openReader(src, preset string) (*reader.Reader, reader.VideoInfo, error) {
	local, err := e.Resolver.Resolve(src)
	if err != nil {
		return nil, reader.VideoInfo{}, err
	}

	var opts reader.Options
	if preset != "" {
		p, ok := e.Config.FindPreset(preset)
		if !ok {
			return nil, reader.VideoInfo{}, fmt.Errorf("cli: unknown preset %q", preset)
		}
		opts = p.ToOptions()
	}

	r := reader.New(func() reader.Codec { return demux.New() }, nil)
	result := r.Open(local)
	if result != reader.OpenSuccess {
		return nil, reader.VideoInfo{}, fmt.Errorf("cli: open %s: %s", local, result)
	}
	if preset != "" {
		r.ChangeAspectRatio(opts.ImageAspectRatio)
		r.ChangeDeinterlace(opts.Deinterlace)
	}
	return r, r.Info(), nil
}

// Info prints the derived VideoInfo for src as a simple key: value
// report, in the register of wnielson-go-mediainfo's plain-text output
// (output_text.go) rather than its JSON/XML/CSV variants — kinoreader
// only needs the one format for now.
func Info(env *Env, src, preset string) error {
	r, info, err := env.openReader(src, preset)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintf(env.Out, "File:              %s\n", info.FilePath)
	fmt.Fprintf(env.Out, "Duration (ts):     %d\n", info.DurationTimestamps)
	fmt.Fprintf(env.Out, "Frames/sec:        %.3f\n", info.FramesPerSecond)
	fmt.Fprintf(env.Out, "Original size:     %s\n", info.OriginalSize)
	fmt.Fprintf(env.Out, "Decoding size:      %s\n", info.DecodingSize)
	fmt.Fprintf(env.Out, "Pixel aspect ratio: %.4f\n", info.PixelAspectRatio)
	fmt.Fprintf(env.Out, "MPEG-2:            %t\n", info.IsCodecMpeg2)
	fmt.Fprintf(env.Out, "Muxed KVA stream:  %t\n", info.HasKva)
	return nil
}

// Thumbs extracts n evenly-spaced thumbnails and prints a count line
// followed by one "[i] ts=... size=WxH" line per thumbnail. It writes no
// image files.
func Thumbs(env *Env, src, preset string, n int) error {
	local, err := env.Resolver.Resolve(src)
	if err != nil {
		return err
	}

	r := reader.New(func() reader.Codec { return demux.New() }, nil)
	summary, err := r.ExtractSummary(local, n, 320)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "%d thumbnails extracted from %s\n", len(summary.Thumbnails), local)
	for i, f := range summary.Thumbnails {
		fmt.Fprintf(env.Out, "  [%d] ts=%d size=%dx%d\n", i, f.Timestamp, f.Image.Width, f.Image.Height)
	}
	return nil
}

// Play opens src and steps through it frame by frame in an SDL2 window
// until the window is closed, driven by pkg/reader's MoveNext/prefetch
// machinery instead of the source decoder pkg/mpeg's Player drove
// directly — the same "lock a streaming texture, memcpy the frame,
// present" loop, generalized to pull frames from the reader facade
// rather than a fixed internal decoder.
func Play(env *Env, src, preset string) error {
	r, info, err := env.openReader(src, preset)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("cli: init sdl: %w", err)
	}
	defer sdl.Quit()

	title := fmt.Sprintf("kinoreader — %s", info.FilePath)
	sk, err := sink.New(title, int32(info.DecodingSize.Width), int32(info.DecodingSize.Height))
	if err != nil {
		return err
	}
	defer sk.Close()

	// Start the prefetch worker before issuing any async MoveTo/MoveNext:
	// with async=true neither ever decodes synchronously (neither calls
	// pkg/reader's readFrame; only the worker does), so without a
	// running worker the cache would never receive a single frame and
	// the loop below would spin forever showing nothing.
	r.StartAsyncDecoding()

	if !r.MoveTo(info.FirstTimestamp, true) {
		return fmt.Errorf("cli: could not read the first frame of %s", src)
	}
	frameInterval := time.Duration(info.FrameIntervalMs * float64(time.Millisecond))

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			if _, ok := event.(*sdl.QuitEvent); ok {
				return nil
			}
		}

		if f := r.Cache().Current(); f != nil {
			if err := sk.Show(f.Image); err != nil {
				return err
			}
		}

		if !r.MoveNext(true) {
			break
		}
		time.Sleep(frameInterval)
	}
	return nil
}
