package main

import (
	"io"
	"log/slog"

	"github.com/alejandrodnm/flipscan/config"
)

// setupLogger installs the default slog logger. Logs go to w so that report
// output on stdout stays machine-readable.
func setupLogger(cfg config.LogConfig, w io.Writer) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch s {
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
