package config

import "fmt"

// ExportConfig configures where CSV exports go besides the local file.
type ExportConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config archives each export to an S3 bucket.
type S3Config struct {
	Enabled  bool   `yaml:"enabled"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // for S3-compatible stores such as localstack or minio
}

// EventsBackend selects where admin action events are published.
type EventsBackend string

const (
	EventsNone  EventsBackend = "none"
	EventsKafka EventsBackend = "kafka"
	EventsSQS   EventsBackend = "sqs"
)

// EventsConfig configures admin action event publishing.
type EventsConfig struct {
	Backend EventsBackend `yaml:"backend"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	SQS     SQSConfig     `yaml:"sqs"`
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// SQSConfig configures the SQS publisher.
type SQSConfig struct {
	QueueURL string `yaml:"queue_url"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// Validate checks that the selected backend is fully configured.
func (e EventsConfig) Validate() error {
	switch e.Backend {
	case "", EventsNone:
		return nil
	case EventsKafka:
		if len(e.Kafka.Brokers) == 0 || e.Kafka.Topic == "" {
			return fmt.Errorf("events.backend kafka requires events.kafka.brokers and events.kafka.topic")
		}
		return nil
	case EventsSQS:
		if e.SQS.QueueURL == "" {
			return fmt.Errorf("events.backend sqs requires events.sqs.queue_url")
		}
		return nil
	}
	return fmt.Errorf("invalid events.backend %q (valid: none, kafka, sqs)", e.Backend)
}
