// Package logger builds the slog loggers used by the binaries. The
// library itself never calls into this package; the adapter takes its
// diagnostic sink as an explicit dependency.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a text logger writing to w at the given level ("debug",
// "info", "warn" or "error"; anything else means info).
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

// FromEnv builds a logger from ASGINEER_LOG_LEVEL and
// ASGINEER_LOG_SINK ("file:/path/to/log", default stdout). The level
// argument, when non-empty, wins over the environment.
func FromEnv(level string) *slog.Logger {
	if level == "" {
		level = os.Getenv("ASGINEER_LOG_LEVEL")
	}
	sink := os.Getenv("ASGINEER_LOG_SINK")
	if path, ok := strings.CutPrefix(sink, "file:"); ok {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err == nil {
			return New(f, level)
		}
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
	}
	return New(os.Stdout, level)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
