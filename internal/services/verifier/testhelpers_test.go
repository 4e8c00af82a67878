package verifier

import (
	"context"
	"sync"
	"time"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/events"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

// mockListRepository implements ListRepository for testing.
type mockListRepository struct {
	LoadFn  func(ctx context.Context) ([]sortable.ListEntry, error)
	SaveFn  func(ctx context.Context, entries []sortable.ListEntry) error
	TouchFn func(ctx context.Context, updated map[string]time.Time) error
}

func (m *mockListRepository) Load(ctx context.Context) ([]sortable.ListEntry, error) {
	return m.LoadFn(ctx)
}

func (m *mockListRepository) Save(ctx context.Context, entries []sortable.ListEntry) error {
	return m.SaveFn(ctx, entries)
}

func (m *mockListRepository) Touch(ctx context.Context, updated map[string]time.Time) error {
	return m.TouchFn(ctx, updated)
}

// mockResultRepository implements ResultRepository for testing.
type mockResultRepository struct {
	LoadFn func(ctx context.Context) (map[string]sortable.Result, error)
	SaveFn func(ctx context.Context, results []sortable.Result) error
}

func (m *mockResultRepository) Load(ctx context.Context) (map[string]sortable.Result, error) {
	return m.LoadFn(ctx)
}

func (m *mockResultRepository) Save(ctx context.Context, results []sortable.Result) error {
	return m.SaveFn(ctx, results)
}

// mockProgressWriter implements ProgressWriter for testing.
type mockProgressWriter struct {
	WriteFn func(ctx context.Context, p sortable.Progress) error
}

func (m *mockProgressWriter) Write(ctx context.Context, p sortable.Progress) error {
	return m.WriteFn(ctx, p)
}

// mockResultSink implements ResultSink for testing.
type mockResultSink struct {
	WriteResultsFn func(ctx context.Context, checks []sortable.Check) error
}

func (m *mockResultSink) WriteResults(ctx context.Context, checks []sortable.Check) error {
	return m.WriteResultsFn(ctx, checks)
}

// mockEventSubmitter implements EventSubmitter for testing.
type mockEventSubmitter struct {
	SubmitEventsFn func(ctx context.Context, batch []*events.Envelope) error
}

func (m *mockEventSubmitter) SubmitEvents(ctx context.Context, batch []*events.Envelope) error {
	return m.SubmitEventsFn(ctx, batch)
}

// recorder captures what a run persisted. Persistence runs concurrently, so
// every field is guarded by mu.
type recorder struct {
	mu       sync.Mutex
	saves    [][]sortable.Result
	touched  map[string]time.Time
	checks   []sortable.Check
	events   []*events.Envelope
	progress []sortable.Progress
	ctxErrs  []error
}

func (r *recorder) lastSave() map[string]sortable.Tri {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saves) == 0 {
		return nil
	}
	out := make(map[string]sortable.Tri)
	for _, res := range r.saves[len(r.saves)-1] {
		out[res.ASIN] = res.IsSortable
	}
	return out
}

func (r *recorder) note(ctx context.Context) {
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
}

// fixture wires a Service to in-memory repositories backed by rec.
type fixture struct {
	list    *mockListRepository
	results *mockResultRepository
	rec     *recorder
}

func newFixture(entries []sortable.ListEntry, known map[string]sortable.Result) *fixture {
	rec := &recorder{}
	return &fixture{
		rec: rec,
		list: &mockListRepository{
			LoadFn: func(ctx context.Context) ([]sortable.ListEntry, error) {
				return entries, nil
			},
			SaveFn: func(ctx context.Context, e []sortable.ListEntry) error {
				return nil
			},
			TouchFn: func(ctx context.Context, updated map[string]time.Time) error {
				rec.mu.Lock()
				defer rec.mu.Unlock()
				rec.note(ctx)
				rec.touched = updated
				return nil
			},
		},
		results: &mockResultRepository{
			LoadFn: func(ctx context.Context) (map[string]sortable.Result, error) {
				return known, nil
			},
			SaveFn: func(ctx context.Context, results []sortable.Result) error {
				rec.mu.Lock()
				defer rec.mu.Unlock()
				rec.note(ctx)
				rec.saves = append(rec.saves, results)
				return nil
			},
		},
	}
}

func (f *fixture) sink() *mockResultSink {
	return &mockResultSink{
		WriteResultsFn: func(ctx context.Context, checks []sortable.Check) error {
			f.rec.mu.Lock()
			defer f.rec.mu.Unlock()
			f.rec.note(ctx)
			f.rec.checks = checks
			return nil
		},
	}
}

func (f *fixture) submitter() *mockEventSubmitter {
	return &mockEventSubmitter{
		SubmitEventsFn: func(ctx context.Context, batch []*events.Envelope) error {
			f.rec.mu.Lock()
			defer f.rec.mu.Unlock()
			f.rec.note(ctx)
			f.rec.events = batch
			return nil
		},
	}
}

func (f *fixture) progressWriter() *mockProgressWriter {
	return &mockProgressWriter{
		WriteFn: func(ctx context.Context, p sortable.Progress) error {
			f.rec.mu.Lock()
			defer f.rec.mu.Unlock()
			f.rec.progress = append(f.rec.progress, p)
			return nil
		},
	}
}
