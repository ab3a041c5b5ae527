// Package logs builds the process-wide structured logger.
package logs

import (
	"log/slog"
	"os"
	"strings"
)

// GetLoggerFromLevel returns a text slog logger writing to stdout.
func GetLoggerFromLevel(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// GetLoggerFromString accepts DEBUG, INFO, WARN or ERROR.
// Anything unrecognised falls back to INFO.
func GetLoggerFromString(level string) *slog.Logger {
	var parsed slog.Level
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		parsed = slog.LevelDebug
	case "WARN", "WARNING":
		parsed = slog.LevelWarn
	case "ERROR":
		parsed = slog.LevelError
	default:
		parsed = slog.LevelInfo
	}
	return GetLoggerFromLevel(parsed)
}
