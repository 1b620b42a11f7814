package logging

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging configuration.
type Config struct {
	Level          string
	Format         string
	FilePath       string
	FileMaxSizeMB  int
	FileMaxFiles   int
	FileMaxAgeDays int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "text",
		FileMaxSizeMB:  20,
		FileMaxFiles:   3,
		FileMaxAgeDays: 14,
	}
}

// New builds a logger writing to w and, when FilePath is set, to a rotated
// log file. The returned closer is nil when no file is involved.
func New(cfg Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	if !ValidLevel(cfg.Level) {
		return nil, nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}
	if !ValidFormat(cfg.Format) {
		return nil, nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	writer, closer := buildWriter(cfg, w)
	return slog.New(buildHandler(writer, parseLevel(cfg.Level), cfg.Format)), closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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

// buildWriter tees w into a lumberjack file when a path is configured.
func buildWriter(cfg Config, w io.Writer) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return w, nil
	}

	def := DefaultConfig()
	maxSize := cfg.FileMaxSizeMB
	if maxSize <= 0 {
		maxSize = def.FileMaxSizeMB
	}
	maxFiles := cfg.FileMaxFiles
	if maxFiles <= 0 {
		maxFiles = def.FileMaxFiles
	}
	maxAge := cfg.FileMaxAgeDays
	if maxAge <= 0 {
		maxAge = def.FileMaxAgeDays
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    maxSize,
		MaxBackups: maxFiles,
		MaxAge:     maxAge,
	}
	return io.MultiWriter(w, lj), lj
}

func buildHandler(w io.Writer, level slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ValidLevel returns true if s is a recognized log level.
func ValidLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// ValidFormat returns true if s is a recognized log format.
func ValidFormat(s string) bool {
	switch s {
	case "text", "json":
		return true
	}
	return false
}
