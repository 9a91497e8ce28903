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

import "math"

// noPTS mirrors AV_NOPTS_VALUE's role in the original: a packet metadata
// field that carries no usable timestamp. astiav (and libav) represent
// this as a specific huge negative sentinel; internal/demux normalizes
// that sentinel, and any negative value, to noPTS before calling Observe.
const noPTS int64 = math.MinInt64

// TimestampInfo is the resolver's running state (spec.md §3/§4.2).
type TimestampInfo struct {
	// Current is the best available presentation timestamp for the frame
	// the decoder most recently emitted, or -1 if none yet.
	Current int64
	// LastDecoded is the last PTS assigned to a fully decoded frame, or -1.
	LastDecoded int64
	// Buffered is the PTS libav most recently announced while buffering
	// (i.e. decoding a frame it will emit later), or +inf if none.
	Buffered int64
}

// EmptyTimestampInfo is the reset state used at the start of every seek.
func EmptyTimestampInfo() TimestampInfo {
	return TimestampInfo{Current: -1, LastDecoded: -1, Buffered: math.MaxInt64}
}

// TimestampResolver reconstructs presentation timestamps from a stream of
// (dts, pts, decoded) packet-metadata tuples, per spec.md §4.2. It has no
// I/O and no dependency on the codec facade; it is deliberately pure so it
// can be unit tested against scripted packet sequences (timestamp_test.go).
type TimestampResolver struct {
	info     TimestampInfo
	avgTspf  int64
}

// NewTimestampResolver constructs a resolver for a stream whose average
// timestamps-per-frame is avgTspf (used for the "no PTS, no DTS, but we
// decoded something before" estimate).
func NewTimestampResolver(avgTspf int64) *TimestampResolver {
	return &TimestampResolver{info: EmptyTimestampInfo(), avgTspf: avgTspf}
}

// Reset clears the resolver's state; called whenever ReadFrame performs a
// seek, since the packet-buffering history from before the seek no longer
// applies.
func (t *TimestampResolver) Reset() { t.info = EmptyTimestampInfo() }

// Info returns the current snapshot.
func (t *TimestampResolver) Info() TimestampInfo { return t.info }

// Observe feeds one packet's metadata into the resolver. dts and pts
// should be noPTS when the underlying packet carried no usable value. A
// negative pts, or a negative dts on a decoded packet, is treated the same
// as noPTS; only the buffering path tells a negative dts apart from a
// missing one. decoded is true once libav has
// actually produced a picture for this packet (as opposed to merely
// buffering it in its internal reorder queue).
//
// Rules, applied in order, straight out of spec.md §4.2 / the original's
// SetTimestampFromPacket:
func (t *TimestampResolver) Observe(dts, pts int64, decoded bool) {
	havePTS := pts != noPTS && pts >= 0

	if havePTS {
		if decoded {
			if t.info.Buffered < pts {
				t.info.Current = t.info.Buffered
				t.info.Buffered = pts
			} else {
				t.info.Current = pts
			}
			t.info.LastDecoded = t.info.Current
		} else {
			t.info.Buffered = pts
		}
		return
	}

	// PTS missing.
	if decoded {
		haveDTS := dts != noPTS && dts >= 0
		if !haveDTS {
			if t.info.Buffered < math.MaxInt64 {
				t.info.Current = t.info.Buffered
				t.info.Buffered = math.MaxInt64
			} else if t.info.LastDecoded >= 0 {
				t.info.Current = t.info.LastDecoded + t.avgTspf
			} else {
				t.info.Current = 0
			}
		} else {
			if t.info.Buffered < dts {
				t.info.Current = t.info.Buffered
				t.info.Buffered = dts
			} else {
				t.info.Current = max64(0, dts)
			}
		}
		t.info.LastDecoded = t.info.Current
		return
	}

	// PTS missing, buffering.
	switch {
	case dts != noPTS && dts < 0:
		t.info.Buffered = math.MaxInt64
	case dts == noPTS:
		t.info.Buffered = 0
	default:
		t.info.Buffered = dts
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
