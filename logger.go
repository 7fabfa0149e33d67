package cartoview

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by cartoview and its sub-packages.
// Nothing is logged until SetLogger is called. Passing nil restores the
// silent default.
//
// Levels:
//   - [slog.LevelDebug]: per-chunk dispatch and abandonment
//   - [slog.LevelInfo]: lifecycle events (renderer start/stop, world indexed)
//   - [slog.LevelWarn]: chunk load failures
//   - [slog.LevelError]: failed ticks
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
