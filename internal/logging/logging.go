// Package logging configures the process-wide slog logger used by the
// therepi binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New builds a text logger on stderr and installs it with slog.SetDefault so
// the stdlib log package also routes through the same handler. Debug mode
// lowers the level and adds file:line to every record.
func New(debug bool) *slog.Logger {
	return NewWriter(os.Stderr, debug)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
