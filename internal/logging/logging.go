// Package logging builds the process-wide slog logger and adapts it for the
// Temporal SDK.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	temporallog "go.temporal.io/sdk/log"

	"github.com/ahrav/clinicalextract/internal/config"
)

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// New builds a text or JSON logger writing to w.
func New(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(handler).With("service", "clinicaleval"), nil
}

// Temporal adapts logger for Temporal clients and workers.
func Temporal(logger *slog.Logger) temporallog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return temporallog.NewStructuredLogger(logger)
}
