// Package files implements the verifier's repositories on top of local CSV
// and JSON files.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
	"github.com/cornjacket/sortable-verifier/internal/shared/infra/csvfile"
)

var listHeader = []string{"ASIN", "ultima_actualizacion"}

// ListStore persists the pending-work list: one row per ASIN with the time it
// was last checked successfully.
type ListStore struct {
	path   string
	loc    *time.Location
	logger *slog.Logger
}

// NewListStore creates a store for path. Timestamps are read and written in loc.
func NewListStore(path string, loc *time.Location, logger *slog.Logger) *ListStore {
	if loc == nil {
		loc = time.Local
	}
	return &ListStore{
		path:   path,
		loc:    loc,
		logger: logger.With("component", "list-store", "path", path),
	}
}

// Path returns the backing file.
func (s *ListStore) Path() string {
	return s.path
}

// Load reads the list in file order. Repeated ASINs collapse into one entry
// holding the newest timestamp. A missing file is an empty list.
func (s *ListStore) Load(ctx context.Context) ([]sortable.ListEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := csvfile.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.parse(table), nil
}

// Save replaces the file with entries sorted by ASIN.
func (s *ListStore) Save(ctx context.Context, entries []sortable.ListEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sorted := make([]sortable.ListEntry, len(entries))
	copy(sorted, entries)
	sortable.SortEntries(sorted)

	records := make([][]string, len(sorted))
	for i, e := range sorted {
		records[i] = []string{e.ASIN, sortable.FormatTimestamp(e.LastUpdated.In(s.loc))}
	}
	return csvfile.Write(s.path, listHeader, records)
}

// Touch re-reads the list, advances the timestamp of every ASIN in updated,
// and saves it. Rows added to the file since it was loaded are kept; ASINs
// not on the list are ignored.
func (s *ListStore) Touch(ctx context.Context, updated map[string]time.Time) error {
	entries, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload list: %w", err)
	}
	for i, e := range entries {
		if ts, ok := updated[e.ASIN]; ok && ts.After(e.LastUpdated) {
			entries[i].LastUpdated = ts
		}
	}
	return s.Save(ctx, entries)
}

func (s *ListStore) parse(table *csvfile.Table) []sortable.ListEntry {
	asinCol := csvfile.FindColumn(table.Header, "asin", "fcsku")
	if asinCol < 0 && len(table.Header) > 0 {
		asinCol = 0
	}
	dateCol := csvfile.FindColumn(table.Header, "actualizacion", "update", "fecha")

	var entries []sortable.ListEntry
	index := make(map[string]int)
	for _, rec := range table.Records {
		rawASIN := csvfile.Field(rec, asinCol)
		rawDate := csvfile.Field(rec, dateCol)

		// Hand-edited files sometimes carry the two columns in the wrong order.
		if looksLikeASIN(rawDate) {
			rawASIN, rawDate = rawDate, rawASIN
		}

		asin, ok := sortable.NormalizeASIN(rawASIN)
		if !ok || isHeaderValue(asin) {
			continue
		}

		ts, err := sortable.ParseTimestamp(rawDate, s.loc)
		if err != nil {
			s.logger.Warn("unparseable timestamp, treating ASIN as never checked",
				"asin", asin,
				"value", rawDate,
			)
			ts = time.Time{}
		}

		if i, seen := index[asin]; seen {
			if ts.After(entries[i].LastUpdated) {
				entries[i].LastUpdated = ts
			}
			continue
		}
		index[asin] = len(entries)
		entries = append(entries, sortable.ListEntry{ASIN: asin, LastUpdated: ts})
	}
	return entries
}

func looksLikeASIN(s string) bool {
	return len(s) == sortable.ASINLength && strings.HasPrefix(strings.ToUpper(s), "B")
}

func isHeaderValue(asin string) bool {
	return asin == "ASIN" || strings.Contains(asin, "ULTIMA")
}
