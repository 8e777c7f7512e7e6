package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		checkFunc func(t *testing.T, logger *slog.Logger, output *bytes.Buffer)
	}{
		{
			name: "json format with debug level",
			config: &Config{
				Level:  "debug",
				Format: "json",
			},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Debug("test debug message", slog.String("key", "value"))

				var logEntry map[string]interface{}
				err := json.Unmarshal(output.Bytes(), &logEntry)
				require.NoError(t, err)

				assert.Equal(t, "DEBUG", logEntry["level"])
				assert.Equal(t, "test debug message", logEntry["msg"])
				assert.Equal(t, "value", logEntry["key"])
				assert.Contains(t, logEntry, "time")
			},
		},
		{
			name: "json format with info level",
			config: &Config{
				Level:  "info",
				Format: "json",
			},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Debug("debug message")
				logger.Info("info message", slog.String("type", "test"))

				lines := strings.Split(strings.TrimSpace(output.String()), "\n")
				// Debug should not be logged
				assert.Len(t, lines, 1)

				var logEntry map[string]interface{}
				err := json.Unmarshal([]byte(lines[0]), &logEntry)
				require.NoError(t, err)

				assert.Equal(t, "INFO", logEntry["level"])
				assert.Equal(t, "info message", logEntry["msg"])
				assert.Equal(t, "test", logEntry["type"])
			},
		},
		{
			name: "json format with warn level",
			config: &Config{
				Level:  "warn",
				Format: "json",
			},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Info("info message")
				logger.Warn("warn message", slog.String("severity", "high"))

				lines := strings.Split(strings.TrimSpace(output.String()), "\n")
				// Info should not be logged
				assert.Len(t, lines, 1)

				var logEntry map[string]interface{}
				err := json.Unmarshal([]byte(lines[0]), &logEntry)
				require.NoError(t, err)

				assert.Equal(t, "WARN", logEntry["level"])
				assert.Equal(t, "warn message", logEntry["msg"])
			},
		},
		{
			name: "console format",
			config: &Config{
				Level:      "info",
				Format:     "console",
				TimeFormat: time.RFC3339,
			},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Info("console test")

				// tint abbreviates levels ("INF")
				logOutput := output.String()
				assert.Contains(t, logOutput, "INF")
				assert.Contains(t, logOutput, "console test")
			},
		},
		{
			name: "with source location enabled",
			config: &Config{
				Level:        "info",
				Format:       "json",
				EnableSource: true,
			},
			checkFunc: func(t *testing.T, logger *slog.Logger, output *bytes.Buffer) {
				logger.Info("message with source")

				var logEntry map[string]interface{}
				err := json.Unmarshal(output.Bytes(), &logEntry)
				require.NoError(t, err)

				assert.Contains(t, logEntry, "source")
				source := logEntry["source"].(map[string]interface{})
				assert.Contains(t, source, "function")
				assert.Contains(t, source, "file")
				assert.Contains(t, source, "line")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}

			cfg := *tt.config
			cfg.writer = output

			logger, err := New(&cfg)
			require.NoError(t, err)
			require.NotNil(t, logger)

			if tt.checkFunc != nil {
				tt.checkFunc(t, logger, output)
			}
		})
	}
}

func TestNew_BadLogFile(t *testing.T) {
	logger, err := New(&Config{
		Level:  "info",
		Format: "json",
		Output: t.TempDir() + "/missing/app.log",
	})
	require.Error(t, err)
	assert.Nil(t, logger)
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected slog.Level
	}{
		{
			name:     "debug level",
			level:    "debug",
			expected: slog.LevelDebug,
		},
		{
			name:     "info level",
			level:    "info",
			expected: slog.LevelInfo,
		},
		{
			name:     "warn level",
			level:    "warn",
			expected: slog.LevelWarn,
		},
		{
			name:     "warning alias",
			level:    "warning",
			expected: slog.LevelWarn,
		},
		{
			name:     "error level",
			level:    "error",
			expected: slog.LevelError,
		},
		{
			name:     "invalid level defaults to info",
			level:    "invalid",
			expected: slog.LevelInfo,
		},
		{
			name:     "empty string defaults to info",
			level:    "",
			expected: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseLevel(tt.level)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLogger_With(t *testing.T) {
	output := &bytes.Buffer{}

	logger, err := New(&Config{
		Level:  "info",
		Format: "json",
		writer: output,
	})
	require.NoError(t, err)

	contextLogger := logger.With(
		slog.String("service", "tracker"),
		slog.Int("version", 1),
	)
	require.NotNil(t, contextLogger)

	contextLogger.Info("run complete")

	var logEntry map[string]interface{}
	err = json.Unmarshal(output.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "tracker", logEntry["service"])
	assert.Equal(t, float64(1), logEntry["version"]) // JSON numbers are float64
	assert.Equal(t, "run complete", logEntry["msg"])
}
