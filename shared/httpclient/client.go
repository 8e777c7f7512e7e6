// Package httpclient builds the outbound HTTP client used by the ingestion
// adapters: per-call timeout plus automatic retry with exponential backoff
// on transient failures (429 and 5xx responses, connection errors).
package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Config holds retry and timeout settings for outbound fetches.
type Config struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryMinWait  time.Duration
	RetryMaxWait  time.Duration
}

// New returns a standard *http.Client whose transport retries transient
// failures before surfacing an error to the caller.
func New(config Config, logger *slog.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = config.RetryAttempts
	rc.RetryWaitMin = config.RetryMinWait
	rc.RetryWaitMax = config.RetryMaxWait
	rc.HTTPClient.Timeout = config.Timeout
	rc.Logger = leveledLogger{logger: logger}

	client := rc.StandardClient()
	client.Timeout = config.Timeout
	return client
}

// leveledLogger adapts slog to retryablehttp's LeveledLogger interface.
// Retry chatter goes to debug; only hard transport errors are worth warn.
type leveledLogger struct {
	logger *slog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}
