// Package logger builds the application slog.Logger: tinted console output
// for interactive use, JSON for anything that ships logs elsewhere.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Config holds logger configuration
type Config struct {
	Level        string // debug, info, warn, error
	Format       string // json, console
	Output       string // stdout, stderr, or file path
	EnableSource bool   // include source code location
	TimeFormat   string // time format for console output

	writer io.Writer // overrides Output, used by tests
}

// New creates a configured slog.Logger.
func New(config *Config) (*slog.Logger, error) {
	level := parseLevel(config.Level)

	writer := config.writer
	if writer == nil {
		switch config.Output {
		case "stdout", "":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		default:
			f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file: %w", err)
			}
			writer = f
		}
	}

	return slog.New(newHandler(writer, config, level)), nil
}

// NewDefault creates a console logger with info level, for use before the
// configuration has been loaded.
func NewDefault() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	}))
}

func newHandler(writer io.Writer, config *Config, level slog.Level) slog.Handler {
	switch config.Format {
	case "console", "":
		timeFormat := config.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}
		return tint.NewHandler(writer, &tint.Options{
			Level:      level,
			AddSource:  config.EnableSource,
			TimeFormat: timeFormat,
		})
	default:
		return slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level:     level,
			AddSource: config.EnableSource,
		})
	}
}

// parseLevel converts a string level to slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch level {
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
