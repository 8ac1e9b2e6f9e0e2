package app

import (
	"io"
	"log/slog"
)

// newLogger builds the run's isolated slog.Logger; the global logger is never
// touched. Level and format strings arrive pre-validated from the CLI layer,
// so anything unrecognized just falls back to info/text.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
