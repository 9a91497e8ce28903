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

import "log"

// Logger is the logging collaborator described in spec.md §6: "Logger
// with Debug/Error at formatted-string granularity". The default
// implementation wraps the standard library logger the way the teacher
// repo logs everywhere (log.Printf("[%s] ...", ...)), rather than pulling
// in a leveled logging framework the teacher never uses.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

// stdLogger adapts the stdlib *log.Logger to the Logger interface.
type stdLogger struct {
	verbose bool
	l       *log.Logger
}

// NewStdLogger returns a Logger backed by the standard library, in the
// teacher's log.Printf style. When verbose is false, Debugf is silent.
func NewStdLogger(l *log.Logger, verbose bool) Logger {
	if l == nil {
		l = log.Default()
	}
	return &stdLogger{verbose: verbose, l: l}
}

func (s *stdLogger) Debugf(format string, args ...any) {
	if !s.verbose {
		return
	}
	s.l.Printf("[DEBUG] "+format, args...)
}

func (s *stdLogger) Errorf(format string, args ...any) {
	s.l.Printf("[ERROR] "+format, args...)
}

// nopLogger discards everything; New uses it when passed a nil Logger.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Errorf(string, ...any) {}
