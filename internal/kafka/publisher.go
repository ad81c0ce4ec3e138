package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/knowtix/billing-service/pkg/logger"
)

// Event types published by the service.
const (
	EventSubscriptionReconciled = "subscription.reconciled"
	EventCheckoutCreated        = "checkout.created"
)

// eventTypeHeader is set on every message.
const eventTypeHeader = "event_type"

// Event is the message body. Messages are keyed by UserID so events of one
// user stay ordered within a partition.
type Event struct {
	Type          string    `json:"type"`
	Provider      string    `json:"provider"`
	ProviderEvent string    `json:"providerEvent,omitempty"`
	ExternalID    string    `json:"externalId,omitempty"`
	UserID        string    `json:"userId"`
	Status        string    `json:"status,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func (e Event) encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to marshal %s event: %w", e.Type, err)
	}
	return body, nil
}

// Publisher sends events to the event stream.
type Publisher interface {
	Publish(ctx context.Context, key string, ev Event) error
	Close() error
}

// NewPublisher builds the publisher selected by cfg.Driver, wrapped with a
// bounded retry.
func NewPublisher(cfg *Config, log *logger.Logger) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers are not configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is not configured")
	}

	var (
		p   Publisher
		err error
	)
	switch cfg.Driver {
	case DriverSarama:
		p, err = NewSaramaPublisher(cfg, log)
	case DriverKafkaGo, "":
		p = NewWriterPublisher(cfg, log)
	default:
		return nil, fmt.Errorf("kafka: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Infow("Kafka publisher initialized", "driver", cfg.Driver, "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewRetryingPublisher(p, cfg.Producer.MaxElapsed, log), nil
}

// RetryingPublisher retries a failed publish with exponential backoff until
// maxElapsed passes or the context ends.
type RetryingPublisher struct {
	next       Publisher
	maxElapsed time.Duration
	log        *logger.Logger
}

// NewRetryingPublisher wraps next.
func NewRetryingPublisher(next Publisher, maxElapsed time.Duration, log *logger.Logger) *RetryingPublisher {
	return &RetryingPublisher{next: next, maxElapsed: maxElapsed, log: log}
}

func (r *RetryingPublisher) Publish(ctx context.Context, key string, ev Event) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = r.maxElapsed
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = 3 * time.Second
	}

	op := func() error {
		return r.next.Publish(ctx, key, ev)
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warnw("Publish failed, retrying", "type", ev.Type, "key", key, "error", err, "retryIn", wait)
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

func (r *RetryingPublisher) Close() error {
	return r.next.Close()
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
func (NopPublisher) Close() error                                 { return nil }
