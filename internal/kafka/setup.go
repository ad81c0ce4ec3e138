package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/knowtix/billing-service/pkg/logger"
	kafkago "github.com/segmentio/kafka-go"
)

// EnsureTopics creates cfg.Topic through the cluster controller when it is
// missing. An existing topic is not an error.
func EnsureTopics(ctx context.Context, cfg *Config, partitions int, log *logger.Logger) error {
	if len(cfg.Brokers) == 0 || strings.TrimSpace(cfg.Brokers[0]) == "" {
		return errors.New("kafka broker address is empty")
	}
	broker := strings.TrimSpace(cfg.Brokers[0])
	if _, _, err := net.SplitHostPort(broker); err != nil {
		return fmt.Errorf("invalid broker address %s: %w", broker, err)
	}
	if partitions <= 0 {
		partitions = 1
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, err := kafkago.DialContext(dialCtx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	existing, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("kafka read partitions failed: %w", err)
	}
	if topicExists(existing, cfg.Topic) {
		log.Debugw("Kafka topic already exists", "topic", cfg.Topic)
		return nil
	}

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller lookup failed: %w", err)
	}
	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))

	ctrlConn, err := kafkago.DialContext(dialCtx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("kafka controller connection failed: %w", err)
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("kafka create topic %s failed: %w", cfg.Topic, err)
	}

	log.Infow("Kafka topic ready", "topic", cfg.Topic, "partitions", partitions, "controller", controllerAddr)
	return nil
}

func topicExists(partitions []kafkago.Partition, topic string) bool {
	for _, p := range partitions {
		if p.Topic == topic {
			return true
		}
	}
	return false
}
