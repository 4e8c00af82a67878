package verifier

import (
	"context"
	"fmt"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

// AddReport describes the effect of AddASINs.
type AddReport struct {
	Added             int
	DuplicatesInInput int
	SkippedExisting   int
	Total             int
}

// AddASINs merges the ASINs found in text into the list. New ASINs start
// without a last-updated time so the next run checks them. The list is
// rewritten even when nothing is added, which also drops duplicate rows.
func (s *Service) AddASINs(ctx context.Context, text string) (*AddReport, error) {
	parsed := sortable.ParseASINs(text)
	if len(parsed) == 0 {
		return nil, ErrNoValidASINs
	}

	seen := make(map[string]bool, len(parsed))
	var unique []string
	for _, asin := range parsed {
		if !seen[asin] {
			seen[asin] = true
			unique = append(unique, asin)
		}
	}

	entries, err := s.list.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load list: %w", err)
	}
	existing := make(map[string]bool, len(entries))
	for _, e := range entries {
		existing[e.ASIN] = true
	}

	report := &AddReport{DuplicatesInInput: len(parsed) - len(unique)}
	for _, asin := range unique {
		if existing[asin] {
			report.SkippedExisting++
			continue
		}
		entries = append(entries, sortable.ListEntry{ASIN: asin})
		report.Added++
	}
	report.Total = len(entries)

	if err := s.list.Save(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to save list: %w", err)
	}

	s.logger.Info("ASINs added to list",
		"added", report.Added,
		"duplicates_in_input", report.DuplicatesInInput,
		"skipped_existing", report.SkippedExisting,
		"total", report.Total,
	)
	return report, nil
}
