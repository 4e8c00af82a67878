package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/clock"
)

// Envelope is the common structure for all events the verifier emits.
// The same structure is published to Redpanda and can be stored as-is.
type Envelope struct {
	// EventID is a time-ordered (v7) identifier for this event
	EventID uuid.UUID `json:"event_id"`

	// EventType is the discriminator (e.g., "asin.checked")
	EventType string `json:"event_type"`

	// AggregateID groups related events; for outcomes it is the ASIN
	AggregateID string `json:"aggregate_id"`

	// EventTime is when the outcome was observed
	EventTime time.Time `json:"event_time"`

	// IngestedAt is when the envelope was built
	IngestedAt time.Time `json:"ingested_at"`

	// Payload contains the event-specific data
	Payload json.RawMessage `json:"payload"`

	// Metadata contains trace IDs, source info, schema version, etc.
	Metadata Metadata `json:"metadata"`
}

// Metadata contains contextual information about the event.
type Metadata struct {
	// TraceID correlates every event of one run (optional)
	TraceID string `json:"trace_id,omitempty"`

	// Source identifies where the event originated
	Source string `json:"source,omitempty"`

	// SchemaVersion for payload evolution
	SchemaVersion int `json:"schema_version"`
}

// NewEnvelope creates a new event envelope with a generated ID. IngestedAt is
// taken from the package clock.
func NewEnvelope(eventType, aggregateID string, payload any, metadata Metadata, eventTime time.Time) (*Envelope, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate event id: %w", err)
	}

	return &Envelope{
		EventID:     id,
		EventType:   eventType,
		AggregateID: aggregateID,
		EventTime:   eventTime,
		IngestedAt:  clock.Now(),
		Payload:     payloadBytes,
		Metadata:    metadata,
	}, nil
}

// ParsePayload unmarshals the payload into the provided type.
func (e *Envelope) ParsePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
