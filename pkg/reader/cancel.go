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

import "sync/atomic"

// canceler is the ThreadCanceler of spec.md §5/§9: a single atomic
// "cancel requested" flag, reusable across prefetch-worker lifetimes via
// Reset. The prefetch worker polls Requested between frames; foreground
// callers set it via Cancel and, if they believe the worker is blocked on
// a full cache, also call Cache.RemoveOldest to unblock it (see
// reader.go's MoveTo).
type canceler struct {
	requested atomic.Bool
}

func newCanceler() *canceler { return &canceler{} }

// Cancel requests that the prefetch worker stop at its next opportunity.
func (c *canceler) Cancel() { c.requested.Store(true) }

// Reset clears the cancellation flag, preparing the canceler for reuse by
// a freshly started prefetch worker.
func (c *canceler) Reset() { c.requested.Store(false) }

// Requested reports whether cancellation has been requested.
func (c *canceler) Requested() bool { return c.requested.Load() }
