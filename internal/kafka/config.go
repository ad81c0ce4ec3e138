package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

// Drivers selectable through kafka.driver.
const (
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

// Config describes where and how reconciliation events are published.
type Config struct {
	Brokers  []string
	Topic    string
	Driver   string
	Producer ProducerConfig
}

// ProducerConfig tunes the underlying producer.
type ProducerConfig struct {
	MaxMessageBytes int
	Compression     sarama.CompressionCodec
	RequiredAcks    sarama.RequiredAcks
	WriteTimeout    time.Duration
	// MaxElapsed bounds the retry of a single publish.
	MaxElapsed time.Duration
}

// NewConfig returns a Config with producer defaults.
func NewConfig(brokers []string, topic, driver string) *Config {
	if driver == "" {
		driver = DriverKafkaGo
	}
	return &Config{
		Brokers: brokers,
		Topic:   topic,
		Driver:  driver,
		Producer: ProducerConfig{
			MaxMessageBytes: 1000000,
			Compression:     sarama.CompressionSnappy,
			RequiredAcks:    sarama.WaitForAll,
			WriteTimeout:    5 * time.Second,
			MaxElapsed:      3 * time.Second,
		},
	}
}

// NewSaramaConfig builds a sarama config for a SyncProducer.
func NewSaramaConfig(cfg *Config) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = "knowtix-billing"
	saramaConfig.Version = sarama.V3_3_0_0

	saramaConfig.Producer.MaxMessageBytes = cfg.Producer.MaxMessageBytes
	saramaConfig.Producer.Compression = cfg.Producer.Compression
	saramaConfig.Producer.RequiredAcks = cfg.Producer.RequiredAcks
	saramaConfig.Producer.Timeout = cfg.Producer.WriteTimeout
	// Retries are handled by the publisher wrapper.
	saramaConfig.Producer.Retry.Max = 0
	// Required by SyncProducer.
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	return saramaConfig
}
