// Package events publishes the admin action journal to external consumers
// over Kafka or SQS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"htnadmin/internal/config"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
)

// Source identifies this application in published envelopes.
const Source = "htnadmin"

// SchemaVersion is bumped whenever Envelope changes incompatibly.
const SchemaVersion = 1

// publishTimeout bounds a single publish so a dead broker cannot stall the
// action that triggered it.
const publishTimeout = 5 * time.Second

// Envelope is the wire shape of a published action.
type Envelope struct {
	Version int            `json:"version"`
	Source  string         `json:"source"`
	Action  journal.Action `json:"action"`
}

// Encode wraps a in an Envelope and marshals it.
func Encode(a journal.Action) ([]byte, error) {
	return json.Marshal(Envelope{Version: SchemaVersion, Source: Source, Action: a})
}

// Decode is the inverse of Encode.
func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}
	return e, nil
}

// Publisher is a journal.Recorder with resources to release.
type Publisher interface {
	journal.Recorder
	io.Closer
}

type nopPublisher struct{ journal.Nop }

func (nopPublisher) Close() error { return nil }

// FromConfig builds the publisher selected by cfg.Backend.
func FromConfig(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.EventsKafka:
		logging.Events("Publishing actions to Kafka topic %s via %v", cfg.Kafka.Topic, cfg.Kafka.Brokers)
		return NewKafkaPublisher(cfg.Kafka), nil
	case config.EventsSQS:
		logging.Events("Publishing actions to SQS queue %s", cfg.SQS.QueueURL)
		return NewSQSPublisher(ctx, cfg.SQS)
	}
	return nopPublisher{}, nil
}

func withPublishTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, publishTimeout)
}
