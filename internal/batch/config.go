package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by Run when the processor is structurally
	// misconfigured. Nothing is dispatched in that case.
	ErrInvalidConfig = errors.New("invalid batch config")

	// ErrFetchFailed marks failures that carry no error of their own, such as
	// a panic inside the fetch function.
	ErrFetchFailed = errors.New("fetch failed")
)

// Config holds the sizing and rate-adaptation policy of a Processor.
type Config struct {
	// InitialWorkers is the pool size used for the first batch.
	InitialWorkers int
	// MaxWorkers is the hard upper bound on pool size.
	MaxWorkers int
	// BatchSize is the number of items drawn from the queue per round.
	BatchSize int
	// ErrorRateLow: a batch error rate strictly below it grows the pool by one.
	ErrorRateLow float64
	// ErrorRateHigh: a batch error rate strictly above it shrinks the pool by one.
	ErrorRateHigh float64
}

// DefaultConfig returns the values the sortable verifier runs with.
func DefaultConfig() Config {
	return Config{
		InitialWorkers: 5,
		MaxWorkers:     50,
		BatchSize:      20,
		ErrorRateLow:   0.05,
		ErrorRateHigh:  0.10,
	}
}

// Validate reports the first structural problem with the config.
func (c Config) Validate() error {
	if c.MaxWorkers < 1 {
		return fmt.Errorf("%w: max workers must be >= 1, got %d", ErrInvalidConfig, c.MaxWorkers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be >= 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.InitialWorkers < 1 || c.InitialWorkers > c.MaxWorkers {
		return fmt.Errorf("%w: initial workers must be in [1, %d], got %d",
			ErrInvalidConfig, c.MaxWorkers, c.InitialWorkers)
	}
	return nil
}

// NextWorkers returns the pool size for the batch after one that ran with
// current workers and observed errorRate. The comparisons are strict on both
// sides, so rates equal to either threshold leave the pool unchanged.
func (c Config) NextWorkers(current int, errorRate float64) int {
	switch {
	case errorRate < c.ErrorRateLow && current < c.MaxWorkers:
		return current + 1
	case errorRate > c.ErrorRateHigh && current > 1:
		return current - 1
	default:
		return current
	}
}
