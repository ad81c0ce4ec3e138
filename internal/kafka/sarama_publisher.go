package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/knowtix/billing-service/pkg/logger"
)

// SaramaPublisher publishes through an IBM/sarama SyncProducer.
type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewSaramaPublisher dials the brokers and returns a SyncProducer backed publisher.
func NewSaramaPublisher(cfg *Config, log *logger.Logger) (*SaramaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create sarama producer: %w", err)
	}
	return NewSaramaPublisherFromProducer(producer, cfg.Topic, log), nil
}

// NewSaramaPublisherFromProducer wraps an existing producer.
func NewSaramaPublisherFromProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *SaramaPublisher {
	return &SaramaPublisher{producer: producer, topic: topic, log: log}
}

// Publish sends ev synchronously. SyncProducer has no context support, so ctx
// is only checked before sending.
func (p *SaramaPublisher) Publish(ctx context.Context, key string, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := ev.encode()
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(eventTypeHeader), Value: []byte(ev.Type)},
		},
		Timestamp: ev.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: failed to publish %s event: %w", ev.Type, err)
	}

	p.log.Debugw("Published event", "topic", p.topic, "type", ev.Type, "partition", partition, "offset", offset)
	return nil
}

func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}
