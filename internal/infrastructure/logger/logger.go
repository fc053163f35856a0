package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rbxstore/fulfillment-service/internal/config"
)

// New builds the process logger from log_config: JSON outside local/dev,
// text otherwise.
func New(env string, cfg config.LogConfig) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogOutput == "stderr" {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" || env == "prod" || env == "production" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h).With("service", "fulfillment-service")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
