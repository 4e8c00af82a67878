package files

import (
	"context"
	"errors"
	"io/fs"
	"sort"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
	"github.com/cornjacket/sortable-verifier/internal/shared/infra/csvfile"
)

var resultsHeader = []string{"asin", "is_sortable"}

// ResultStore persists the latest sortable verdict per ASIN. An empty
// is_sortable cell records a failed or inconclusive check.
type ResultStore struct {
	path string
}

func NewResultStore(path string) *ResultStore {
	return &ResultStore{path: path}
}

// Path returns the backing file.
func (s *ResultStore) Path() string {
	return s.path
}

// Load reads every result keyed by ASIN. A missing file yields no results.
func (s *ResultStore) Load(ctx context.Context) (map[string]sortable.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := csvfile.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]sortable.Result{}, nil
	}
	if err != nil {
		return nil, err
	}

	asinCol := csvfile.FindColumn(table.Header, "asin")
	if asinCol < 0 {
		asinCol = 0
	}
	sortCol := csvfile.FindColumn(table.Header, "sortable")

	results := make(map[string]sortable.Result, len(table.Records))
	for _, rec := range table.Records {
		asin, ok := sortable.NormalizeASIN(csvfile.Field(rec, asinCol))
		if !ok {
			continue
		}
		results[asin] = sortable.Result{
			ASIN:       asin,
			IsSortable: sortable.ParseTri(csvfile.Field(rec, sortCol)),
		}
	}
	return results, nil
}

// Save replaces the file with results sorted by ASIN.
func (s *ResultStore) Save(ctx context.Context, results []sortable.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sorted := make([]sortable.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ASIN < sorted[j].ASIN
	})

	records := make([][]string, len(sorted))
	for i, r := range sorted {
		records[i] = []string{r.ASIN, r.IsSortable.String()}
	}
	return csvfile.Write(s.path, resultsHeader, records)
}
