// Package sortable holds the domain types for checking whether catalog items
// (ASINs) can travel through automated sortation.
package sortable

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// ASINLength is the fixed length of a valid ASIN.
const ASINLength = 10

// TimestampLayout is the day-first layout used in the list and results files.
const TimestampLayout = "02/01/2006 15:04:05"

// Tri is a three-valued boolean. Unknown means the attribute was missing or
// the lookup failed.
type Tri int

const (
	Unknown Tri = iota
	True
	False
)

// TriFromBool converts a plain bool.
func TriFromBool(b bool) Tri {
	if b {
		return True
	}
	return False
}

// ParseTri parses "true"/"false" case-insensitively. Anything else is Unknown.
func ParseTri(s string) Tri {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return True
	case "false":
		return False
	default:
		return Unknown
	}
}

// String renders the value the way the results file stores it.
func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return ""
	}
}

// Known reports whether t is True or False.
func (t Tri) Known() bool {
	return t != Unknown
}

// MarshalJSON encodes Unknown as null.
func (t Tri) MarshalJSON() ([]byte, error) {
	if !t.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(t == True)
}

// UnmarshalJSON accepts true, false, or null.
func (t *Tri) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if b == nil {
		*t = Unknown
		return nil
	}
	*t = TriFromBool(*b)
	return nil
}

// Attributes is the subset of catalog attributes kept for an ASIN.
type Attributes struct {
	ASIN         string    `json:"asin"`
	IsSortable   Tri       `json:"is_sortable"`
	IsConveyable Tri       `json:"is_conveyable"`
	IsHazmat     Tri       `json:"is_hazmat"`
	HeightCM     float64   `json:"height_cm"`
	LengthCM     float64   `json:"length_cm"`
	WidthCM      float64   `json:"width_cm"`
	WeightKG     float64   `json:"weight_kg"`
	ItemName     string    `json:"item_name"`
	Category     string    `json:"category"`
	QueryDate    time.Time `json:"query_date"`
}

// Result is the persisted verdict for one ASIN.
type Result struct {
	ASIN       string
	IsSortable Tri
}

// Check is the outcome of one lookup as handed to result sinks. Attributes
// is nil when the lookup failed, in which case Error describes why.
type Check struct {
	ASIN        string
	Attributes  *Attributes
	Error       string
	LastUpdated time.Time // last successful check, zero if never
	CheckedAt   time.Time
}

// OK reports whether the lookup succeeded.
func (c Check) OK() bool {
	return c.Attributes != nil
}

// ListEntry is one row of the pending-work list. LastUpdated is zero for ASINs
// that were never checked successfully.
type ListEntry struct {
	ASIN        string
	LastUpdated time.Time
}

// Progress is a snapshot of a run in flight.
type Progress struct {
	RunStartedAt time.Time `json:"run_started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Total        int       `json:"total"`
	Processed    int       `json:"processed"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Batches      int       `json:"batches"`
	Workers      int       `json:"workers"`
	LastError    float64   `json:"last_error_rate"`
}

// NormalizeASIN trims and upper-cases s. ok is false if the result is not
// ASINLength characters long.
func NormalizeASIN(s string) (asin string, ok bool) {
	asin = strings.ToUpper(strings.TrimSpace(s))
	return asin, len(asin) == ASINLength
}

// ParseASINs extracts valid ASINs from free text separated by commas,
// semicolons, or newlines. Order and duplicates are preserved.
func ParseASINs(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})

	var out []string
	for _, f := range fields {
		if asin, ok := NormalizeASIN(f); ok {
			out = append(out, asin)
		}
	}
	return out
}

// FormatTimestamp renders t with TimestampLayout. The zero time renders empty.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout value in loc. Empty input yields the
// zero time without error.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(TimestampLayout, s, loc)
}

// SortEntries orders entries by ASIN.
func SortEntries(entries []ListEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ASIN < entries[j].ASIN
	})
}
