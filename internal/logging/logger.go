// Package logging provides the structured logger used across the engine.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with engine-specific helpers.
// This keeps field names consistent between packages.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at Info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON records to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable records to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// LogFailure records a failed operation at Debug level.
// These records are advisory; callers must rely on the returned error.
func (l *Logger) LogFailure(op string, err error) {
	if l == nil || err == nil {
		return
	}
	l.Debug("operation failed", "op", op, "error", err)
}

// LogBlock records arena growth.
func (l *Logger) LogBlock(size, blocks int, dedicated bool) {
	if l == nil {
		return
	}
	l.Debug("arena block allocated",
		"size", size,
		"blocks", blocks,
		"dedicated", dedicated,
	)
}
