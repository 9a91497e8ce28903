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

import "sync"

// prefetchWorker is the background decoding loop of spec.md §4.6 (C6). It
// keeps calling readFrame(-1, 1, false) — "decode whatever comes next" —
// so that by the time playback's MoveNext reaches a given timestamp, the
// frame is usually already cached. When readFrame reports FrameNotRead
// (end of stream or a read error) it wraps back around to timestamp 0,
// since the reader has no
// other notion of "done prefetching" short of the cache filling up (which
// readFrame itself backpressures on via Cache.Add's window).
type prefetchWorker struct {
	reader   *Reader
	canceler *canceler
	log      Logger

	wg      sync.WaitGroup
	stopped chan struct{}
}

func newPrefetchWorker(r *Reader, c *canceler, log Logger) *prefetchWorker {
	return &prefetchWorker{reader: r, canceler: c, log: log, stopped: make(chan struct{})}
}

func (w *prefetchWorker) start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *prefetchWorker) loop() {
	defer w.wg.Done()
	defer close(w.stopped)

	for {
		if w.canceler.Requested() {
			w.log.Debugf("prefetch worker: cancellation observed, stopping")
			return
		}

		res := w.reader.readFrame(-1, 1, false)
		switch res {
		case ReadSuccess:
			continue
		case ReadFrameNotRead:
			// End of stream (or a read error): attempt one wrap-around
			// to timestamp 0, matching the original's looped-prefetch
			// behavior.
			w.log.Debugf("prefetch worker: end reached, wrapping around")
			if w.canceler.Requested() {
				return
			}
			if w.reader.readFrame(0, 1, false) != ReadSuccess {
				// Nothing decodable at all; stop spinning.
				return
			}
		default:
			w.log.Errorf("prefetch worker: unexpected result %s, stopping", res)
			return
		}
	}
}

// cancel requests the worker to stop and, since it may be blocked inside
// Cache.Add waiting for forward-window room, also calls RemoveOldest so a
// full cache doesn't delay shutdown indefinitely: RemoveOldest broadcasts
// on the cache's condition variable, which is what actually wakes a
// blocked Add (see cache.go).
func (w *prefetchWorker) cancel() {
	w.canceler.Cancel()
	w.reader.cache.RemoveOldest()
}

// stop cancels the worker and blocks until its goroutine has exited.
func (w *prefetchWorker) stop() {
	w.canceler.Cancel()
	w.reader.cache.RemoveOldest()
	w.wg.Wait()
}

func (w *prefetchWorker) running() bool {
	select {
	case <-w.stopped:
		return false
	default:
		return true
	}
}
