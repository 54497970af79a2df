package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var root atomic.Pointer[slog.Logger]

// Debug mirrors App.Debug once InitLogger has run.
var Debug = false

// ParseLevel maps LOG_LEVEL names to slog levels. Unknown names mean INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger installs the process-wide logger. A nil writer means stderr.
func InitLogger(level string, debug bool, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	Debug = debug

	opts := &slog.HandlerOptions{Level: ParseLevel(level), AddSource: debug}
	logger := slog.New(slog.NewTextHandler(w, opts))

	root.Store(logger)
	slog.SetDefault(logger)
	return logger
}

// Logger returns the process logger tagged with a component name.
func Logger(component string) *slog.Logger {
	l := root.Load()
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", component)
}
