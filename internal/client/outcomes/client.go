package outcomes

import (
	"context"
	"log/slog"
	"strings"

	"go.uber.org/multierr"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/events"
)

// Topics outcome events are routed to.
const (
	TopicChecks        = "asin-checks"
	TopicCheckFailures = "asin-check-failures"
	TopicSystem        = "system-events"
)

// EventPublisher publishes events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *events.Envelope) error
	PublishBatch(ctx context.Context, topic string, batch []*events.Envelope) error
}

// Client publishes check outcomes for downstream consumers.
// It wraps the underlying message bus (Redpanda) to provide a service-level abstraction.
type Client struct {
	publisher EventPublisher
	logger    *slog.Logger
}

// New creates a new outcomes client.
func New(publisher EventPublisher, logger *slog.Logger) *Client {
	return &Client{
		publisher: publisher,
		logger:    logger.With("client", "outcomes"),
	}
}

// SubmitEvent publishes a single event to the topic derived from its type.
func (c *Client) SubmitEvent(ctx context.Context, event *events.Envelope) error {
	topic := topicFromEventType(event.EventType)

	if err := c.publisher.Publish(ctx, topic, event); err != nil {
		c.logger.Error("failed to submit event",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"topic", topic,
			"error", err,
		)
		return err
	}

	c.logger.Debug("event submitted",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"topic", topic,
	)
	return nil
}

// SubmitEvents groups events by topic and publishes one batch per topic.
// Topics are attempted independently; the returned error combines failures.
func (c *Client) SubmitEvents(ctx context.Context, batch []*events.Envelope) error {
	byTopic := make(map[string][]*events.Envelope)
	var order []string
	for _, event := range batch {
		topic := topicFromEventType(event.EventType)
		if _, ok := byTopic[topic]; !ok {
			order = append(order, topic)
		}
		byTopic[topic] = append(byTopic[topic], event)
	}

	var errs error
	for _, topic := range order {
		if err := c.publisher.PublishBatch(ctx, topic, byTopic[topic]); err != nil {
			c.logger.Error("failed to submit events",
				"topic", topic,
				"count", len(byTopic[topic]),
				"error", err,
			)
			errs = multierr.Append(errs, err)
			continue
		}
		c.logger.Debug("events submitted", "topic", topic, "count", len(byTopic[topic]))
	}
	return errs
}

// topicFromEventType derives the Redpanda topic from the event type.
func topicFromEventType(eventType string) string {
	switch {
	case eventType == events.TypeASINCheckFailed:
		return TopicCheckFailures
	case strings.HasPrefix(eventType, "asin."):
		return TopicChecks
	default:
		return TopicSystem
	}
}
