package verifier

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/sortable-verifier/internal/batch"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/clock"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/events"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

var errLookup = errors.New("http status 503")

var (
	lastWeek = time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	runStart = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
)

func fixClock(t *testing.T) {
	t.Helper()
	clock.Set(clock.FixedClock{Time: runStart})
	t.Cleanup(clock.Reset)
}

// scriptedFetch answers from verdicts; ASINs missing from it fail. It records
// every ASIN it was asked for.
type scriptedFetch struct {
	mu       sync.Mutex
	verdicts map[string]sortable.Tri
	calls    []string
}

func (f *scriptedFetch) fetch(_ context.Context, asin string) (sortable.Attributes, error) {
	f.mu.Lock()
	f.calls = append(f.calls, asin)
	f.mu.Unlock()

	v, ok := f.verdicts[asin]
	if !ok {
		return sortable.Attributes{}, errLookup
	}
	return sortable.Attributes{ASIN: asin, IsSortable: v, ItemName: "item " + asin, QueryDate: runStart}, nil
}

func (f *scriptedFetch) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func testConfig() Config {
	return Config{Batch: batch.DefaultConfig()}
}

// The standard scenario: A known sortable, B previously failed, C never
// checked, D known unsortable.
func standardWork() ([]sortable.ListEntry, map[string]sortable.Result) {
	entries := []sortable.ListEntry{
		{ASIN: "B00000000A", LastUpdated: lastWeek},
		{ASIN: "B00000000B"},
		{ASIN: "B00000000C"},
		{ASIN: "B00000000D", LastUpdated: lastWeek},
	}
	known := map[string]sortable.Result{
		"B00000000A": {ASIN: "B00000000A", IsSortable: sortable.True},
		"B00000000B": {ASIN: "B00000000B", IsSortable: sortable.Unknown},
		"B00000000D": {ASIN: "B00000000D", IsSortable: sortable.False},
	}
	return entries, known
}

func TestSelectPending(t *testing.T) {
	entries, known := standardWork()

	tests := []struct {
		name    string
		entries []sortable.ListEntry
		known   map[string]sortable.Result
		force   bool
		want    []string
	}{
		{
			name:    "new and unknown are pending",
			entries: entries,
			known:   known,
			want:    []string{"B00000000B", "B00000000C"},
		},
		{
			name:    "force selects everything in list order",
			entries: entries,
			known:   known,
			force:   true,
			want:    []string{"B00000000A", "B00000000B", "B00000000C", "B00000000D"},
		},
		{
			name:    "no results selects everything",
			entries: entries,
			known:   nil,
			want:    []string{"B00000000A", "B00000000B", "B00000000C", "B00000000D"},
		},
		{
			name:    "results not on the list are ignored",
			entries: entries[:1],
			known:   known,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectPending(tt.entries, tt.known, tt.force))
		})
	}
}

func TestRun_ChecksPendingAndPersists(t *testing.T) {
	fixClock(t)
	entries, known := standardWork()
	f := newFixture(entries, known)
	fetch := &scriptedFetch{verdicts: map[string]sortable.Tri{"B00000000B": sortable.True}}

	svc := NewService(f.list, f.results, fetch.fetch, testConfig(), slog.Default(),
		WithResultSink(f.sink()),
		WithEventSubmitter(f.submitter()),
	)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"B00000000B", "B00000000C"}, fetch.called())

	assert.Equal(t, 4, summary.ListSize)
	assert.Equal(t, 2, summary.Pending)
	assert.False(t, summary.NothingPending)
	assert.Equal(t, 2, summary.Stats.Processed)
	assert.Equal(t, 1, summary.Stats.Succeeded)
	assert.Equal(t, 1, summary.Stats.Failed)
	assert.Equal(t, 1, summary.Sortable)
	assert.Equal(t, 0, summary.Unsortable)
	assert.Equal(t, 4, summary.TotalResults)

	assert.Equal(t, map[string]sortable.Tri{
		"B00000000A": sortable.True,
		"B00000000B": sortable.True,
		"B00000000C": sortable.Unknown,
		"B00000000D": sortable.False,
	}, f.rec.lastSave())

	// Only the success this run advances its timestamp.
	assert.Equal(t, map[string]time.Time{"B00000000B": runStart}, f.rec.touched)

	require.Len(t, f.rec.checks, 2)
	byASIN := map[string]sortable.Check{}
	for _, c := range f.rec.checks {
		byASIN[c.ASIN] = c
	}
	assert.True(t, byASIN["B00000000B"].OK())
	assert.Equal(t, runStart, byASIN["B00000000B"].LastUpdated)
	assert.False(t, byASIN["B00000000C"].OK())
	assert.Contains(t, byASIN["B00000000C"].Error, "503")
	assert.True(t, byASIN["B00000000C"].LastUpdated.IsZero())

	require.Len(t, f.rec.events, 2)
	types := map[string]string{}
	for _, e := range f.rec.events {
		types[e.AggregateID] = e.EventType
		assert.NotEmpty(t, e.Metadata.TraceID)
	}
	assert.Equal(t, map[string]string{
		"B00000000B": events.TypeASINChecked,
		"B00000000C": events.TypeASINCheckFailed,
	}, types)
}

func TestRun_FailedItemIsSelectedAgain(t *testing.T) {
	fixClock(t)
	entries, known := standardWork()
	f := newFixture(entries, known)
	fetch := &scriptedFetch{verdicts: map[string]sortable.Tri{}}

	svc := NewService(f.list, f.results, fetch.fetch, testConfig(), slog.Default())
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	saved := f.rec.lastSave()
	next := make(map[string]sortable.Result, len(saved))
	for asin, v := range saved {
		next[asin] = sortable.Result{ASIN: asin, IsSortable: v}
	}

	assert.Empty(t, f.rec.touched)
	assert.Equal(t, []string{"B00000000B", "B00000000C"}, SelectPending(entries, next, false))
}

func TestRun_Force(t *testing.T) {
	fixClock(t)
	entries, known := standardWork()
	f := newFixture(entries, known)
	fetch := &scriptedFetch{verdicts: map[string]sortable.Tri{
		"B00000000A": sortable.False,
		"B00000000B": sortable.True,
		"B00000000C": sortable.True,
		"B00000000D": sortable.Unknown,
	}}

	cfg := testConfig()
	cfg.Force = true
	svc := NewService(f.list, f.results, fetch.fetch, cfg, slog.Default())

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"B00000000A", "B00000000B", "B00000000C", "B00000000D"}, fetch.called())
	assert.Equal(t, 2, summary.Sortable)
	assert.Equal(t, 1, summary.Unsortable)
	assert.Equal(t, 1, summary.Unknown)
	assert.Len(t, f.rec.touched, 4)
	assert.Equal(t, sortable.False, f.rec.lastSave()["B00000000A"])
}

func TestRun_EmptyList(t *testing.T) {
	f := newFixture(nil, nil)
	svc := NewService(f.list, f.results, (&scriptedFetch{}).fetch, testConfig(), slog.Default())

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrEmptyList)
}

func TestRun_NothingPending(t *testing.T) {
	entries, known := standardWork()
	known["B00000000B"] = sortable.Result{ASIN: "B00000000B", IsSortable: sortable.True}
	known["B00000000C"] = sortable.Result{ASIN: "B00000000C", IsSortable: sortable.False}
	f := newFixture(entries, known)
	fetch := &scriptedFetch{}

	svc := NewService(f.list, f.results, fetch.fetch, testConfig(), slog.Default())
	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.NothingPending)
	assert.Equal(t, 4, summary.TotalResults)
	assert.Empty(t, fetch.called())
	assert.Nil(t, f.rec.lastSave(), "nothing is rewritten")
}

func TestRun_LoadErrors(t *testing.T) {
	boom := errors.New("disk on fire")

	t.Run("list", func(t *testing.T) {
		f := newFixture(nil, nil)
		f.list.LoadFn = func(ctx context.Context) ([]sortable.ListEntry, error) { return nil, boom }
		_, err := NewService(f.list, f.results, nil, testConfig(), slog.Default()).Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failed to load list")
	})

	t.Run("results", func(t *testing.T) {
		entries, _ := standardWork()
		f := newFixture(entries, nil)
		f.results.LoadFn = func(ctx context.Context) (map[string]sortable.Result, error) { return nil, boom }
		_, err := NewService(f.list, f.results, nil, testConfig(), slog.Default()).Run(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failed to load results")
	})
}

func TestRun_InvalidBatchConfig(t *testing.T) {
	entries, known := standardWork()
	f := newFixture(entries, known)
	fetch := &scriptedFetch{}

	cfg := testConfig()
	cfg.Batch.BatchSize = 0
	_, err := NewService(f.list, f.results, fetch.fetch, cfg, slog.Default()).Run(context.Background())

	assert.ErrorIs(t, err, batch.ErrInvalidConfig)
	assert.Empty(t, fetch.called())
	assert.Nil(t, f.rec.lastSave())
}

func TestRun_CancelledMidRunPersistsFinished(t *testing.T) {
	fixClock(t)
	var entries []sortable.ListEntry
	verdicts := map[string]sortable.Tri{}
	for _, asin := range []string{"B000000001", "B000000002", "B000000003", "B000000004", "B000000005"} {
		entries = append(entries, sortable.ListEntry{ASIN: asin})
		verdicts[asin] = sortable.True
	}
	f := newFixture(entries, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetch := &scriptedFetch{verdicts: verdicts}
	cancelling := func(c context.Context, asin string) (sortable.Attributes, error) {
		cancel()
		return fetch.fetch(c, asin)
	}

	cfg := testConfig()
	cfg.Batch.BatchSize = 2
	svc := NewService(f.list, f.results, cancelling, cfg, slog.Default(),
		WithResultSink(f.sink()),
		WithEventSubmitter(f.submitter()),
	)

	summary, err := svc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)

	assert.Equal(t, 2, summary.Stats.Processed)
	assert.Equal(t, []string{"B000000001", "B000000002"}, fetch.called())
	assert.Len(t, f.rec.lastSave(), 2)
	assert.Len(t, f.rec.touched, 2)
	assert.Len(t, f.rec.checks, 2)
	assert.Len(t, f.rec.events, 2)

	for _, ctxErr := range f.rec.ctxErrs {
		assert.NoError(t, ctxErr, "persistence must not see the cancelled context")
	}
}

func TestRun_SinkFailureStillWritesFiles(t *testing.T) {
	fixClock(t)
	entries, known := standardWork()
	f := newFixture(entries, known)
	fetch := &scriptedFetch{verdicts: map[string]sortable.Tri{"B00000000B": sortable.True, "B00000000C": sortable.False}}

	boom := errors.New("connection refused")
	sink := &mockResultSink{
		WriteResultsFn: func(ctx context.Context, checks []sortable.Check) error { return boom },
	}

	svc := NewService(f.list, f.results, fetch.fetch, testConfig(), slog.Default(), WithResultSink(sink))
	summary, err := svc.Run(context.Background())

	require.ErrorIs(t, err, boom)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Stats.Succeeded)
	assert.NotNil(t, f.rec.lastSave())
	assert.Len(t, f.rec.touched, 2)
}

func TestRun_ProgressAndCheckpoint(t *testing.T) {
	fixClock(t)
	var entries []sortable.ListEntry
	verdicts := map[string]sortable.Tri{}
	for _, asin := range []string{"B000000001", "B000000002", "B000000003", "B000000004", "B000000005"} {
		entries = append(entries, sortable.ListEntry{ASIN: asin})
		verdicts[asin] = sortable.True
	}
	f := newFixture(entries, nil)
	fetch := &scriptedFetch{verdicts: verdicts}

	cfg := testConfig()
	cfg.Batch.BatchSize = 2
	cfg.CheckpointEachBatch = true
	svc := NewService(f.list, f.results, fetch.fetch, cfg, slog.Default(), WithProgress(f.progressWriter()))

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, f.rec.progress, 3)
	last := f.rec.progress[2]
	assert.Equal(t, 5, last.Total)
	assert.Equal(t, 5, last.Processed)
	assert.Equal(t, 3, last.Batches)
	assert.Equal(t, 8, last.Workers)
	assert.Equal(t, runStart, last.RunStartedAt)
	assert.Equal(t, 2, f.rec.progress[0].Processed)

	// three checkpoints plus the final save
	assert.Len(t, f.rec.saves, 4)
	assert.Len(t, f.rec.saves[0], 2)
	assert.Len(t, f.rec.saves[3], 5)
}

func TestRun_ProgressFailureDoesNotStopRun(t *testing.T) {
	fixClock(t)
	entries, known := standardWork()
	f := newFixture(entries, known)
	fetch := &scriptedFetch{verdicts: map[string]sortable.Tri{"B00000000B": sortable.True, "B00000000C": sortable.True}}

	progress := &mockProgressWriter{
		WriteFn: func(ctx context.Context, p sortable.Progress) error { return errors.New("read-only fs") },
	}
	svc := NewService(f.list, f.results, fetch.fetch, testConfig(), slog.Default(), WithProgress(progress))

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Sortable)
}
