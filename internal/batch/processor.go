// Package batch runs fallible work items through an adaptively sized worker
// pool, one fixed-size batch at a time.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/clock"
)

// FetchFunc resolves one work item. It may be slow and may fail; it should
// impose its own timeout since a stuck call stalls its batch.
type FetchFunc[P any] func(ctx context.Context, id string) (P, error)

// Stats summarizes a Run.
type Stats struct {
	Processed    int
	Succeeded    int
	Failed       int
	Batches      int
	FinalWorkers int
}

// BatchReport describes one completed batch.
type BatchReport struct {
	Index       int
	Size        int
	Failures    int
	ErrorRate   float64
	Workers     int
	NextWorkers int
	Duration    time.Duration
	Stats       Stats // cumulative, including this batch
}

// BatchHook is called on the controlling goroutine after every batch, before
// the next one is dispatched. The store must not be retained or mutated.
type BatchHook[P any] func(report BatchReport, store Store[P])

// Option configures a Processor.
type Option[P any] func(*Processor[P])

// WithBatchHook registers a hook that observes every completed batch.
func WithBatchHook[P any](hook BatchHook[P]) Option[P] {
	return func(p *Processor[P]) {
		p.onBatch = hook
	}
}

// Processor drains a queue of work items through a worker pool whose size is
// adjusted after every batch from the batch's error rate.
type Processor[P any] struct {
	config  Config
	fetch   FetchFunc[P]
	onBatch BatchHook[P]
	logger  *slog.Logger
}

// NewProcessor creates a processor. The config is validated when Run starts.
func NewProcessor[P any](config Config, fetch FetchFunc[P], logger *slog.Logger, opts ...Option[P]) *Processor[P] {
	p := &Processor[P]{
		config: config,
		fetch:  fetch,
		logger: logger.With("component", "batch-processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes items to completion and returns resume merged with their
// outcomes. Successful items are stamped with the run's start time; failed
// items keep their previous timestamp so callers select them again next run.
//
// Per-item failures never abort the run. If ctx is done at a batch boundary
// Run stops dispatching and returns what it has together with ctx.Err().
func (p *Processor[P]) Run(ctx context.Context, items []string, resume Store[P]) (Store[P], Stats, error) {
	if err := p.config.Validate(); err != nil {
		return resume, Stats{}, err
	}
	if len(items) == 0 {
		return resume, Stats{}, nil
	}

	runStart := clock.Now()
	store := resume.Clone()
	workers := p.config.InitialWorkers
	var stats Stats

	pool := NewPool(workers)
	defer pool.Close()

	p.logger.Info("starting run",
		"items", len(items),
		"batch_size", p.config.BatchSize,
		"initial_workers", workers,
		"max_workers", p.config.MaxWorkers,
	)

	for start := 0; start < len(items); start += p.config.BatchSize {
		if err := ctx.Err(); err != nil {
			stats.FinalWorkers = workers
			p.logger.Warn("run interrupted", "processed", stats.Processed, "remaining", len(items)-start)
			return store, stats, err
		}

		batch := items[start:min(start+p.config.BatchSize, len(items))]
		pool.Resize(workers)

		began := time.Now()
		failures := p.runBatch(ctx, pool, batch, store, runStart, &stats)
		stats.Batches++

		errorRate := float64(failures) / float64(len(batch))
		next := p.config.NextWorkers(workers, errorRate)

		report := BatchReport{
			Index:       stats.Batches - 1,
			Size:        len(batch),
			Failures:    failures,
			ErrorRate:   errorRate,
			Workers:     workers,
			NextWorkers: next,
			Duration:    time.Since(began),
			Stats:       stats,
		}
		report.Stats.FinalWorkers = next
		p.logBatch(report)

		if p.onBatch != nil {
			p.onBatch(report, store)
		}
		workers = next
	}

	stats.FinalWorkers = workers
	p.logger.Info("run completed",
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"batches", stats.Batches,
		"final_workers", stats.FinalWorkers,
	)
	return store, stats, nil
}

// runBatch dispatches every item of batch on the pool and records outcomes in
// completion order. It returns once all of them are in.
func (p *Processor[P]) runBatch(ctx context.Context, pool *Pool, batch []string, store Store[P], runStart time.Time, stats *Stats) int {
	results := make(chan Outcome[P], len(batch))
	go func() {
		for _, id := range batch {
			pool.Submit(func() {
				results <- p.fetchOne(ctx, id)
			})
		}
	}()

	failures := 0
	for range batch {
		o := <-results
		store.record(o, runStart)
		stats.Processed++
		if o.OK() {
			stats.Succeeded++
			p.logger.Debug("item succeeded", "id", o.ID, "workers", pool.Size())
			continue
		}
		failures++
		stats.Failed++
		p.logger.Warn("item failed, will be retried next run",
			"id", o.ID,
			"workers", pool.Size(),
			"error", o.Err,
		)
	}
	return failures
}

// fetchOne calls fetch and converts errors and panics into a failed outcome.
func (p *Processor[P]) fetchOne(ctx context.Context, id string) (out Outcome[P]) {
	defer func() {
		if r := recover(); r != nil {
			out = Failure[P](id, fmt.Errorf("%w: panic: %v", ErrFetchFailed, r))
		}
	}()

	payload, err := p.fetch(ctx, id)
	if err != nil {
		return Failure[P](id, err)
	}
	return Success(id, payload)
}

func (p *Processor[P]) logBatch(r BatchReport) {
	logger := p.logger.With(
		"batch", r.Index,
		"size", r.Size,
		"failures", r.Failures,
		"error_rate", r.ErrorRate,
	)
	switch {
	case r.NextWorkers > r.Workers:
		logger.Info("low error rate, increasing workers", "from", r.Workers, "to", r.NextWorkers)
	case r.NextWorkers < r.Workers:
		logger.Warn("high error rate, reducing workers", "from", r.Workers, "to", r.NextWorkers)
	default:
		logger.Info("batch completed", "workers", r.Workers)
	}
}
