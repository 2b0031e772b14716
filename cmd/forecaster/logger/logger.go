// Package logger builds the forecaster's root *slog.Logger from
// configuration, matching the log-format/log-level knobs the rest of the
// codebase (pkg/httpx, pkg/storage, pkg/engine) already expects to be
// handed a *slog.Logger.
package logger

import (
	"log/slog"
	"os"

	"github.com/brasero/hourly-forecaster/cmd/forecaster/config"
)

// New builds a *slog.Logger from cfg.LogFormat ("text" or "json") and
// cfg.LogLevel ("debug", "info", "warn", "error"). Unknown values fall back
// to text format and info level rather than failing startup.
func New(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	switch cfg.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
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
