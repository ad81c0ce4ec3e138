package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/knowtix/billing-service/pkg/logger"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// WriterPublisher publishes through a segmentio/kafka-go Writer.
type WriterPublisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
	log          *logger.Logger
}

// NewWriterPublisher creates a kafka-go backed publisher.
func NewWriterPublisher(cfg *Config, log *logger.Logger) *WriterPublisher {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.Producer.WriteTimeout,
		ReadTimeout:  cfg.Producer.WriteTimeout,
	}
	return &WriterPublisher{writer: writer, topic: cfg.Topic, writeTimeout: cfg.Producer.WriteTimeout, log: log}
}

func (p *WriterPublisher) Publish(ctx context.Context, key string, ev Event) error {
	value, err := ev.encode()
	if err != nil {
		return err
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafkago.Header{
			{Key: eventTypeHeader, Value: []byte(ev.Type)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("kafka: write timeout: %w", err)
		}
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	p.log.Debugw("Published event", "topic", p.topic, "type", ev.Type, "key", key)
	return nil
}

func (p *WriterPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	p.log.Infow("Kafka writer closed")
	return nil
}
