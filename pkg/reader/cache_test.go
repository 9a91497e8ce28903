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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestFrame(ts int64) *Frame {
	return &Frame{Timestamp: ts, Image: ImageBuffer{Width: 1, Height: 1, Pix: []byte{0}}}
}

func TestCacheAddKeepsOrderAndDedupes(t *testing.T) {
	var disposed []int64
	c := NewCache(func(f *Frame) { disposed = append(disposed, f.Timestamp) })

	c.Add(newTestFrame(2000))
	c.Add(newTestFrame(0))
	c.Add(newTestFrame(1000))
	assert.Equal(t, 3, c.Size())

	c.Add(newTestFrame(1000)) // duplicate: disposed immediately, not inserted
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, []int64{1000}, disposed)
}

func TestCacheMoveToAndMoveNext(t *testing.T) {
	c := NewCache(func(*Frame) {})
	c.Add(newTestFrame(0))
	c.Add(newTestFrame(1000))
	c.Add(newTestFrame(2000))

	assert.True(t, c.MoveTo(1000))
	assert.Equal(t, int64(1000), c.Current().Timestamp)

	assert.False(t, c.MoveTo(1500), "no frame at that exact timestamp")
	assert.Equal(t, int64(1000), c.Current().Timestamp, "playhead unchanged on a failed MoveTo")

	c.MoveNext()
	assert.Equal(t, int64(2000), c.Current().Timestamp)

	c.MoveNext() // already at the last frame
	assert.Equal(t, int64(2000), c.Current().Timestamp)
}

func TestCacheHasNext(t *testing.T) {
	c := NewCache(func(*Frame) {})
	c.Add(newTestFrame(0))
	assert.False(t, c.HasNext())

	c.Add(newTestFrame(1000))
	c.MoveTo(0)
	assert.True(t, c.HasNext())
}

func TestCacheSetWorkingZoneEvictsOutOfRange(t *testing.T) {
	var disposed []int64
	c := NewCache(func(f *Frame) { disposed = append(disposed, f.Timestamp) })
	c.Add(newTestFrame(0))
	c.Add(newTestFrame(1000))
	c.Add(newTestFrame(5000))
	c.MoveTo(1000)

	c.SetWorkingZone(Section{Start: 0, End: 2000})

	assert.Equal(t, 2, c.Size())
	assert.Equal(t, []int64{5000}, disposed)
	assert.Equal(t, int64(1000), c.Current().Timestamp, "playhead re-found by timestamp after eviction")
}

func TestCacheClearDisposesEverythingOnce(t *testing.T) {
	var disposed []int64
	c := NewCache(func(f *Frame) { disposed = append(disposed, f.Timestamp) })
	c.Add(newTestFrame(0))
	c.Add(newTestFrame(1000))

	c.Clear()
	assert.Equal(t, 0, c.Size())
	assert.ElementsMatch(t, []int64{0, 1000}, disposed)
	assert.Nil(t, c.Current())
}

func TestCacheDisposeOnePanicsOnDoubleDispose(t *testing.T) {
	c := NewCache(func(*Frame) {})
	f := newTestFrame(0)
	c.disposeOne(f)

	assert.Panics(t, func() { c.disposeOne(f) }, "disposing the same frame twice is a caller bug")
}

func TestCacheIsRolloverJump(t *testing.T) {
	c := NewCache(func(*Frame) {})
	c.SetWorkingZone(Section{Start: 0, End: 5000})
	c.Add(newTestFrame(4000))
	c.Add(newTestFrame(5000))

	assert.True(t, c.IsRolloverJump(0), "cache already holds the zone's tail, jump target is the zone's start")
	assert.False(t, c.IsRolloverJump(1000))
}

func TestCacheContains(t *testing.T) {
	c := NewCache(func(*Frame) {})
	c.Add(newTestFrame(1000))
	assert.True(t, c.Contains(1000))
	assert.False(t, c.Contains(999))
}

func TestCacheCapacityDisabledDuringBulkFill(t *testing.T) {
	c := NewCache(func(*Frame) {})
	c.backWindow = 0
	c.forwardWindow = 0
	c.DisableCapacityCheck()

	c.Add(newTestFrame(0))
	c.MoveTo(0)
	c.Add(newTestFrame(10000)) // would be evicted under capacityBounded with a zero window
	c.Add(newTestFrame(20000))
	assert.Equal(t, 3, c.Size())

	c.EnableCapacityCheck()
	assert.Equal(t, 1, c.Size(), "re-enabling capacity checking evicts everything outside the window immediately, without waiting for another Add")
	assert.Equal(t, int64(0), c.Current().Timestamp)
}

func TestCacheAddBlocksWhenForwardWindowFull(t *testing.T) {
	c := NewCache(func(*Frame) {})
	c.backWindow = 60
	c.forwardWindow = 1
	c.Add(newTestFrame(0))
	c.MoveTo(0)
	c.Add(newTestFrame(1000)) // fills the one-frame forward window

	done := make(chan struct{})
	go func() {
		c.Add(newTestFrame(2000)) // must block until RemoveOldest frees room
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Add returned before the forward window had any free room")
	case <-time.After(50 * time.Millisecond):
	}

	c.RemoveOldest() // drops ts=0, unblocking the pending Add

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Add stayed blocked after RemoveOldest freed a forward-window slot")
	}
	assert.Equal(t, 2, c.Size())
}
