// Package verifier checks the sortable status of every pending ASIN on the
// list and records the outcome in the results file and optional sinks.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/errgroup"

	"github.com/cornjacket/sortable-verifier/internal/batch"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/clock"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/events"
	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

var (
	// ErrEmptyList is returned by Run when the list holds no valid ASINs.
	ErrEmptyList = errors.New("no ASINs in list")

	// ErrNoValidASINs is returned by AddASINs when the input holds no valid ASINs.
	ErrNoValidASINs = errors.New("no valid ASINs in input")

	errPreviousFailure = errors.New("previous check failed")
)

// Fetcher looks up the attributes of one ASIN.
type Fetcher = batch.FetchFunc[sortable.Attributes]

// Config controls a verification run.
type Config struct {
	Batch batch.Config

	// Force checks every listed ASIN instead of only the pending ones.
	Force bool

	// CheckpointEachBatch rewrites the results file after every batch.
	CheckpointEachBatch bool
}

// Summary describes a finished run.
type Summary struct {
	ListSize       int
	Pending        int
	NothingPending bool
	Stats          batch.Stats

	// Verdicts among the ASINs checked successfully in this run.
	Sortable   int
	Unsortable int
	Unknown    int

	// TotalResults is the number of ASINs in the results file after the run.
	TotalResults int
}

// Option configures optional collaborators of a Service.
type Option func(*Service)

// WithProgress writes a progress snapshot after every batch.
func WithProgress(p ProgressWriter) Option {
	return func(s *Service) { s.progress = p }
}

// WithResultSink also writes every checked ASIN to sink.
func WithResultSink(sink ResultSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithEventSubmitter publishes one outcome event per checked ASIN.
func WithEventSubmitter(e EventSubmitter) Option {
	return func(s *Service) { s.events = e }
}

// Service orchestrates verification runs over the list and results stores.
type Service struct {
	list     ListRepository
	results  ResultRepository
	fetch    Fetcher
	progress ProgressWriter
	sink     ResultSink
	events   EventSubmitter
	config   Config
	logger   *slog.Logger
}

// NewService creates a new verifier service.
func NewService(list ListRepository, results ResultRepository, fetch Fetcher, config Config, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		list:    list,
		results: results,
		fetch:   fetch,
		config:  config,
		logger:  logger.With("service", "verifier"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run checks every pending ASIN and persists the outcome.
//
// If ctx is cancelled mid-run, the ASINs finished so far are still persisted
// and the context error is returned along with the summary. A persistence
// failure is returned with the summary as well.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	entries, err := s.list.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load list: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyList
	}

	known, err := s.results.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	pending := SelectPending(entries, known, s.config.Force)
	summary := &Summary{
		ListSize:     len(entries),
		Pending:      len(pending),
		TotalResults: len(known),
	}

	s.logger.Info("loaded work",
		"listed", len(entries),
		"known_results", len(known),
		"pending", len(pending),
		"force", s.config.Force,
	)

	if len(pending) == 0 {
		summary.NothingPending = true
		return summary, nil
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}
	runStart := clock.Now()
	logger := s.logger.With("run_id", runID.String())

	proc := batch.NewProcessor(s.config.Batch, s.fetch, logger,
		batch.WithBatchHook(s.batchHook(ctx, logger, runStart, len(pending))),
	)
	store, stats, runErr := proc.Run(ctx, pending, buildResume(entries, known))
	if runErr != nil && !isContextErr(runErr) {
		return nil, fmt.Errorf("failed to run verification: %w", runErr)
	}

	// Batches run in order and stop only at boundaries, so the processed
	// ASINs are exactly a prefix of pending.
	processed := pending[:stats.Processed]

	summary.Stats = stats
	summary.TotalResults = len(store)
	tally(summary, store, processed)

	if err := s.persist(context.WithoutCancel(ctx), store, processed, runStart, runID.String()); err != nil {
		return summary, fmt.Errorf("failed to persist results: %w", err)
	}

	if runErr != nil {
		logger.Warn("run interrupted, finished ASINs were saved",
			"processed", stats.Processed,
			"remaining", len(pending)-stats.Processed,
		)
		return summary, runErr
	}
	return summary, nil
}

// batchHook logs progress, writes the progress snapshot, and optionally
// checkpoints the results file. Failures are logged and never stop the run.
func (s *Service) batchHook(ctx context.Context, logger *slog.Logger, runStart time.Time, total int) batch.BatchHook[sortable.Attributes] {
	return func(r batch.BatchReport, store batch.Store[sortable.Attributes]) {
		logger.Info("progress",
			"processed", r.Stats.Processed,
			"total", total,
			"succeeded", r.Stats.Succeeded,
			"failed", r.Stats.Failed,
			"workers", r.NextWorkers,
		)

		if s.progress != nil {
			p := sortable.Progress{
				RunStartedAt: runStart,
				UpdatedAt:    clock.Now(),
				Total:        total,
				Processed:    r.Stats.Processed,
				Succeeded:    r.Stats.Succeeded,
				Failed:       r.Stats.Failed,
				Batches:      r.Stats.Batches,
				Workers:      r.NextWorkers,
				LastError:    r.ErrorRate,
			}
			if err := s.progress.Write(ctx, p); err != nil {
				logger.Warn("failed to write progress", "error", err)
			}
		}

		if s.config.CheckpointEachBatch {
			if err := s.results.Save(ctx, resultsFromStore(store)); err != nil {
				logger.Warn("failed to checkpoint results", "batch", r.Index, "error", err)
			}
		}
	}
}

// persist writes the run's outcome to every configured target. Targets are
// independent: a failing sink does not stop the files from being written.
func (s *Service) persist(ctx context.Context, store batch.Store[sortable.Attributes], processed []string, runStart time.Time, runID string) error {
	var g errgroup.Group

	g.Go(func() error {
		if err := s.results.Save(ctx, resultsFromStore(store)); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := s.list.Touch(ctx, successTimes(store, processed)); err != nil {
			return fmt.Errorf("failed to update list timestamps: %w", err)
		}
		return nil
	})

	if s.sink != nil {
		g.Go(func() error {
			if err := s.sink.WriteResults(ctx, checks(store, processed, runStart)); err != nil {
				return fmt.Errorf("failed to write results to sink: %w", err)
			}
			return nil
		})
	}

	if s.events != nil {
		g.Go(func() error {
			envs, err := outcomeEvents(store, processed, runStart, runID)
			if err != nil {
				return err
			}
			if err := s.events.SubmitEvents(ctx, envs); err != nil {
				return fmt.Errorf("failed to publish outcome events: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// buildResume seeds the processor's store from the results file. Known
// verdicts are successes, unknown ones failures; both carry the list's
// last-updated time.
func buildResume(entries []sortable.ListEntry, known map[string]sortable.Result) batch.Store[sortable.Attributes] {
	listed := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		listed[e.ASIN] = e.LastUpdated
	}

	store := make(batch.Store[sortable.Attributes], len(known))
	for asin, r := range known {
		entry := batch.Entry[sortable.Attributes]{UpdatedAt: listed[asin]}
		if r.IsSortable.Known() {
			entry.Outcome = batch.Success(asin, sortable.Attributes{ASIN: asin, IsSortable: r.IsSortable})
		} else {
			entry.Outcome = batch.Failure[sortable.Attributes](asin, errPreviousFailure)
		}
		store[asin] = entry
	}
	return store
}

func resultsFromStore(store batch.Store[sortable.Attributes]) []sortable.Result {
	out := make([]sortable.Result, 0, len(store))
	for asin, e := range store {
		r := sortable.Result{ASIN: asin}
		if e.Outcome.OK() {
			r.IsSortable = e.Outcome.Payload.IsSortable
		}
		out = append(out, r)
	}
	return out
}

func successTimes(store batch.Store[sortable.Attributes], processed []string) map[string]time.Time {
	out := make(map[string]time.Time, len(processed))
	for _, asin := range processed {
		if e := store[asin]; e.Outcome.OK() && !e.UpdatedAt.IsZero() {
			out[asin] = e.UpdatedAt
		}
	}
	return out
}

func checks(store batch.Store[sortable.Attributes], processed []string, runStart time.Time) []sortable.Check {
	out := make([]sortable.Check, 0, len(processed))
	for _, asin := range processed {
		e := store[asin]
		c := sortable.Check{ASIN: asin, LastUpdated: e.UpdatedAt, CheckedAt: runStart}
		if e.Outcome.OK() {
			attrs := e.Outcome.Payload
			c.Attributes = &attrs
		} else {
			c.Error = e.Outcome.Err.Error()
		}
		out = append(out, c)
	}
	return out
}

func outcomeEvents(store batch.Store[sortable.Attributes], processed []string, runStart time.Time, runID string) ([]*events.Envelope, error) {
	out := make([]*events.Envelope, 0, len(processed))
	for _, asin := range processed {
		e := store[asin]

		var env *events.Envelope
		var err error
		if e.Outcome.OK() {
			env, err = events.NewCheckedEvent(e.Outcome.Payload, runID)
		} else {
			env, err = events.NewCheckFailedEvent(asin, e.Outcome.Err, e.UpdatedAt, runStart, runID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build outcome event for %s: %w", asin, err)
		}
		out = append(out, env)
	}
	return out, nil
}

func tally(summary *Summary, store batch.Store[sortable.Attributes], processed []string) {
	for _, asin := range processed {
		e := store[asin]
		if !e.Outcome.OK() {
			continue
		}
		switch e.Outcome.Payload.IsSortable {
		case sortable.True:
			summary.Sortable++
		case sortable.False:
			summary.Unsortable++
		default:
			summary.Unknown++
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
