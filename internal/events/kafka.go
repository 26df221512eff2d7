package events

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"htnadmin/internal/config"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each action to a Kafka topic, keyed by its target
// so that all actions on one patient land on the same partition.
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

// NewKafkaPublisher creates a synchronous writer for cfg.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{w: w, topic: cfg.Topic}
}

// Record implements journal.Recorder.
func (p *KafkaPublisher) Record(ctx context.Context, a journal.Action) error {
	body, err := Encode(a)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(partitionKey(a)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(a.Kind)},
			{Key: "source", Value: []byte(Source)},
		},
	}

	ctx, cancel := withPublishTimeout(ctx)
	defer cancel()
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		logging.EventsError("Kafka publish of %s to %s failed: %v", a.Kind, p.topic, err)
		return fmt.Errorf("kafka publish: %w", err)
	}
	logging.Events("Published %s (%s) to %s", a.Kind, a.ID, p.topic)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func partitionKey(a journal.Action) string {
	if a.TargetType == "" {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s:%d", a.TargetType, a.TargetID)
}
