package verifier

import (
	"context"
	"time"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/events"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

// ListRepository stores the pending-work list.
type ListRepository interface {
	Load(ctx context.Context) ([]sortable.ListEntry, error)
	Save(ctx context.Context, entries []sortable.ListEntry) error
	// Touch advances the last-updated time of the given ASINs.
	Touch(ctx context.Context, updated map[string]time.Time) error
}

// ResultRepository stores the latest verdict per ASIN.
type ResultRepository interface {
	Load(ctx context.Context) (map[string]sortable.Result, error)
	Save(ctx context.Context, results []sortable.Result) error
}

// ProgressWriter receives a snapshot after every batch.
type ProgressWriter interface {
	Write(ctx context.Context, p sortable.Progress) error
}

// ResultSink receives the full outcome of every ASIN checked in a run.
// This interface is satisfied by postgres.ResultsRepo.
type ResultSink interface {
	WriteResults(ctx context.Context, checks []sortable.Check) error
}

// EventSubmitter publishes outcome events downstream.
// This interface is satisfied by client/outcomes.Client.
type EventSubmitter interface {
	SubmitEvents(ctx context.Context, batch []*events.Envelope) error
}
