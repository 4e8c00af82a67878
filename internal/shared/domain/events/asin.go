package events

import (
	"time"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

// Event types for ASIN check outcomes.
const (
	TypeASINChecked     = "asin.checked"
	TypeASINCheckFailed = "asin.check_failed"

	// SourceVerifier is the Metadata.Source of every outcome event.
	SourceVerifier = "sortable-verifier"

	schemaVersion = 1
)

// CheckFailedPayload is the payload of an asin.check_failed event.
type CheckFailedPayload struct {
	ASIN        string    `json:"asin"`
	Error       string    `json:"error"`
	LastUpdated time.Time `json:"last_updated,omitzero"`
}

// NewCheckedEvent wraps a successful lookup.
func NewCheckedEvent(attrs sortable.Attributes, runID string) (*Envelope, error) {
	return NewEnvelope(TypeASINChecked, attrs.ASIN, attrs, outcomeMetadata(runID), attrs.QueryDate)
}

// NewCheckFailedEvent wraps a failed lookup. lastUpdated is the time of the
// last successful check, zero if there never was one.
func NewCheckFailedEvent(asin string, cause error, lastUpdated, observedAt time.Time, runID string) (*Envelope, error) {
	payload := CheckFailedPayload{ASIN: asin, LastUpdated: lastUpdated}
	if cause != nil {
		payload.Error = cause.Error()
	}
	return NewEnvelope(TypeASINCheckFailed, asin, payload, outcomeMetadata(runID), observedAt)
}

func outcomeMetadata(runID string) Metadata {
	return Metadata{TraceID: runID, Source: SourceVerifier, SchemaVersion: schemaVersion}
}
