package glcompat

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/glcompat/backend/native"
	"github.com/gogpu/glcompat/chunk"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for glcompat and all its sub-packages.
// By default, glcompat produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore silent output.
//
// Log levels used by glcompat:
//   - [slog.LevelDebug]: rejected and skipped calls, pipeline creation
//   - [slog.LevelInfo]: lifecycle events (backend ready, bridge closed)
//   - [slog.LevelWarn]: malformed sections, dropped backend draws
//
// Example:
//
//	glcompat.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	chunk.SetLogger(l)
	native.SetLogger(l)
}

// Logger returns the current logger used by glcompat.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
