// Package events publishes newly discovered postings to a RabbitMQ exchange
// so other systems (resume pipelines, dashboards) can react without polling
// the database. The publisher is optional; runs proceed normally without it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-johnnyhe/jobs/internal/config"
	"github.com/go-johnnyhe/jobs/internal/domain"
	"github.com/go-johnnyhe/jobs/shared/rabbitmq"
)

// EventTypeNewPosting is the envelope type for a first-seen posting.
const EventTypeNewPosting = "job.posting.new"

// PostingEvent is the wire envelope for posting events.
type PostingEvent struct {
	Type      string            `json:"type"`
	Posting   domain.JobPosting `json:"posting"`
	EmittedAt time.Time         `json:"emitted_at"`
}

// Publisher emits posting events to the configured exchange.
type Publisher struct {
	client  *rabbitmq.Client
	logger  *slog.Logger
	timeout time.Duration
}

// NewPublisher connects to the broker named in the events configuration.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger) (*Publisher, error) {
	client, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		VHost:           cfg.VHost,
		ExchangeName:    cfg.Exchange,
		ExchangeType:    "topic",
		ExchangeDurable: true,
		RoutingKey:      cfg.RoutingKey,
		RetryAttempts:   3,
		RetryInterval:   2 * time.Second,
		Heartbeat:       10 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}

	return &Publisher{
		client:  client,
		logger:  logger,
		timeout: cfg.Timeout,
	}, nil
}

// PublishPosting emits one new-posting event. Errors are returned for
// logging but a failed publish never blocks the notification flow.
func (p *Publisher) PublishPosting(ctx context.Context, posting domain.JobPosting) error {
	event := PostingEvent{
		Type:      EventTypeNewPosting,
		Posting:   posting,
		EmittedAt: time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal posting event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish posting event: %w", err)
	}

	p.logger.Debug("Published posting event",
		slog.String("company", posting.Company),
		slog.String("title", posting.Title),
	)
	return nil
}

// Close shuts down the broker connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
