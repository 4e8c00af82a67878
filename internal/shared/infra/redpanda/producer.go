package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/multierr"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/events"
)

// Producer implements outcomes.EventPublisher using Redpanda (Kafka-compatible).
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewProducer creates a new Redpanda producer.
func NewProducer(brokers []string, logger *slog.Logger) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redpanda client: %w", err)
	}

	return &Producer{
		client: client,
		logger: logger.With("component", "redpanda-producer"),
	}, nil
}

// Publish sends an event to the specified topic.
func (p *Producer) Publish(ctx context.Context, topic string, event *events.Envelope) error {
	return p.PublishBatch(ctx, topic, []*events.Envelope{event})
}

// PublishBatch sends events to topic in a single synchronous produce call.
// Every record is attempted; the returned error combines all failures.
func (p *Producer) PublishBatch(ctx context.Context, topic string, batch []*events.Envelope) error {
	if len(batch) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(batch))
	for _, event := range batch {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventID, err)
		}
		records = append(records, &kgo.Record{
			Topic: topic,
			Key:   []byte(event.AggregateID), // Partition by ASIN for ordering
			Value: value,
		})
	}

	var errs error
	for _, res := range p.client.ProduceSync(ctx, records...) {
		if res.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("record %s: %w", res.Record.Key, res.Err))
		}
	}
	if errs != nil {
		failed := len(multierr.Errors(errs))
		p.logger.Error("failed to publish events",
			"topic", topic,
			"failed", failed,
			"total", len(records),
			"error", errs,
		)
		return fmt.Errorf("failed to publish %d of %d events to %s: %w", failed, len(records), topic, errs)
	}

	p.logger.Debug("events published to Redpanda",
		"topic", topic,
		"count", len(records),
	)
	return nil
}

// Close closes the producer connection.
func (p *Producer) Close() {
	p.client.Close()
	p.logger.Info("Redpanda producer closed")
}
