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
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/assert"

	"github.com/jcharmant/kinoreader/pkg/reader"
)

func TestCorrectMagicFPS(t *testing.T) {
	assert.Equal(t, 29.97, correctMagicFPS(30000))
	assert.Equal(t, 24.975, correctMagicFPS(25000))
	assert.Equal(t, 23.976, correctMagicFPS(23.976), "non-magic values pass through unchanged")
	assert.Equal(t, 25.0, correctMagicFPS(25.0), "plain 25 is not the 25000 magic value")
}

func TestRescaleDuration(t *testing.T) {
	assert.Equal(t, int64(0), rescaleDuration(0, 1, 25))
	assert.Equal(t, int64(0), rescaleDuration(-5, 1, 25))
	// 2,000,000 microseconds (2s) in a 1/25 timebase is 50 ticks.
	assert.Equal(t, int64(50), rescaleDuration(2_000_000, 1, 25))
}

func TestNormalizeTS(t *testing.T) {
	assert.Equal(t, reader.NoPTS, normalizeTS(astiav.NoPtsValue))
	assert.Equal(t, reader.NoPTS, normalizeTS(-1))
	assert.Equal(t, int64(1234), normalizeTS(1234))
	assert.Equal(t, int64(0), normalizeTS(0))
}

func TestAsOpenResult(t *testing.T) {
	assert.Equal(t, reader.OpenFileNotOpened, asOpenResult(errOpenFailed))
	assert.Equal(t, reader.OpenStreamInfoNotFound, asOpenResult(errStreamInfo))
	assert.Equal(t, reader.OpenVideoStreamNotFound, asOpenResult(errNoVideoStream))
	assert.Equal(t, reader.OpenCodecNotFound, asOpenResult(errCodecNotFound))
	assert.Equal(t, reader.OpenCodecNotOpened, asOpenResult(errCodecNotOpened))
}
