package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls where and how much is logged.
type Config struct {
	Level   string
	DataDir string
	ToFile  bool
}

// Init configures the default slog logger. FEEDFLOAT_LOG_LEVEL and
// FEEDFLOAT_LOG_FORMAT override the config; logs go to stderr unless ToFile is
// set, in which case they are appended to DataDir/feedfloat.log.
func Init(cfg Config) {
	level := cfg.Level
	if env := os.Getenv("FEEDFLOAT_LOG_LEVEL"); env != "" {
		level = env
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var w io.Writer = os.Stderr
	if cfg.ToFile && cfg.DataDir != "" {
		logFile := filepath.Join(cfg.DataDir, "feedfloat.log")
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			slog.Error("failed to create log directory, using stderr", "dir", cfg.DataDir, "error", err)
		} else if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			slog.Error("failed to open log file, using stderr", "file", logFile, "error", err)
		} else {
			w = f
		}
	}

	var handler slog.Handler
	if os.Getenv("FEEDFLOAT_LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
