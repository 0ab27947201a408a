// Package logging configures the process-wide slog logger. Components take
// a child logger via With("component", ...) so log lines can be filtered
// per subsystem.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup builds a text-handler logger at the given level, installs it as the
// slog default, and returns it. The level comes from BYWATER_LOG_LEVEL and
// accepts debug, info, warn, or error; anything else falls back to info.
func Setup(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
