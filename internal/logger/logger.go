package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/financial-reconciliation-engine/internal/config"
)

// NewLogger creates and configures a new slog.Logger writing JSON to stdout
func NewLogger(cfg *config.Config) *slog.Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter is NewLogger writing to w. The CLI logs to stderr so that
// command output on stdout stays parseable.
func NewLoggerWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source code location to log output
		AddSource: level == slog.LevelDebug,
	}

	handler := slog.NewJSONHandler(w, opts)
	logger := slog.New(handler)

	logger.Info("logger initialized", "level", level)

	return logger
}
