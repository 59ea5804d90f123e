package app

import (
	"io"
	"log/slog"
)

// parseLevel maps a configured level name to a slog.Level. Unknown names
// fall back to info; the CLI has already rejected them.
func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger builds the isolated logger one App writes through. The process
// default logger is left alone so several apps can share a test binary.
// At debug level records carry their source position.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := parseLevel(levelStr)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch formatStr {
	case "json":
		handler = slog.NewJSONHandler(outW, handlerOpts)
	default:
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
