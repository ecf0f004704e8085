// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default slog logger. Production deployments set
// LOG_FORMAT=json so log aggregators get structured records; everything else
// gets the text handler.
func Setup(logLevel string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: parseLevel(logLevel)}

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
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

// WithModule returns the default logger tagged with the component name. Every
// package constructor takes one of these so log lines carry their origin.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
