package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

const upsertSucceeded = `
	INSERT INTO sortable_results (
		asin, status, is_sortable, is_conveyable, is_hazmat,
		height_cm, length_cm, width_cm, weight_kg,
		item_name, category, last_error, last_updated, checked_at
	)
	VALUES ($1, 'ok', $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, $11, $12)
	ON CONFLICT (asin) DO UPDATE SET
		status        = 'ok',
		is_sortable   = EXCLUDED.is_sortable,
		is_conveyable = EXCLUDED.is_conveyable,
		is_hazmat     = EXCLUDED.is_hazmat,
		height_cm     = EXCLUDED.height_cm,
		length_cm     = EXCLUDED.length_cm,
		width_cm      = EXCLUDED.width_cm,
		weight_kg     = EXCLUDED.weight_kg,
		item_name     = EXCLUDED.item_name,
		category      = EXCLUDED.category,
		last_error    = NULL,
		last_updated  = EXCLUDED.last_updated,
		checked_at    = EXCLUDED.checked_at
`

// A failed check never advances last_updated and leaves the last known
// attributes in place; only the verdict is cleared.
const upsertFailed = `
	INSERT INTO sortable_results (asin, status, is_sortable, last_error, last_updated, checked_at)
	VALUES ($1, 'failed', NULL, $2, $3, $4)
	ON CONFLICT (asin) DO UPDATE SET
		status       = 'failed',
		is_sortable  = NULL,
		last_error   = EXCLUDED.last_error,
		last_updated = COALESCE(sortable_results.last_updated, EXCLUDED.last_updated),
		checked_at   = EXCLUDED.checked_at
`

// ResultsRepo implements verifier.ResultSink using PostgreSQL.
type ResultsRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewResultsRepo creates a new ResultsRepo.
func NewResultsRepo(pool *pgxpool.Pool, logger *slog.Logger) *ResultsRepo {
	return &ResultsRepo{
		pool:   pool,
		logger: logger.With("repository", "sortable_results"),
	}
}

// WriteResults upserts every check in a single round trip.
func (r *ResultsRepo) WriteResults(ctx context.Context, checks []sortable.Check) error {
	if len(checks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range checks {
		if c.OK() {
			a := c.Attributes
			batch.Queue(upsertSucceeded,
				c.ASIN,
				triToBool(a.IsSortable),
				triToBool(a.IsConveyable),
				triToBool(a.IsHazmat),
				a.HeightCM,
				a.LengthCM,
				a.WidthCM,
				a.WeightKG,
				a.ItemName,
				a.Category,
				nullTime(c.LastUpdated),
				c.CheckedAt,
			)
			continue
		}
		batch.Queue(upsertFailed,
			c.ASIN,
			c.Error,
			nullTime(c.LastUpdated),
			c.CheckedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	for _, c := range checks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert result for %s: %w", c.ASIN, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close result batch: %w", err)
	}

	r.logger.Debug("results upserted", "count", len(checks))
	return nil
}

func triToBool(t sortable.Tri) *bool {
	if !t.Known() {
		return nil
	}
	b := t == sortable.True
	return &b
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
