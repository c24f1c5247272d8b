// Package station provides the handful of process-wide accessors every
// STATION component shares: a single structured logger reached through
// station.Logger() rather than importing log/slog (or a free package-level
// global) directly, per SPEC_FULL.md §4.7.
package station

import (
	"log/slog"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// SetLogger installs the process-wide logger. cmd/stationd calls this once
// at startup, right after observability/logging.Setup returns.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	current.Store(l)
}

// Logger returns the process-wide logger, falling back to slog.Default()
// when SetLogger has not been called yet (tests, or code that runs before
// cmd/stationd's startup sequence reaches logging setup).
func Logger() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return slog.Default()
}
