package batch

import (
	"sort"
	"time"
)

// Outcome is the result of fetching one work item: either a success carrying
// a payload or a failure carrying the error that caused it.
type Outcome[P any] struct {
	ID      string
	Payload P
	Err     error
}

// Success builds a successful outcome.
func Success[P any](id string, payload P) Outcome[P] {
	return Outcome[P]{ID: id, Payload: payload}
}

// Failure builds a failed outcome. A nil err is replaced with ErrFetchFailed
// so the outcome still reads as failed.
func Failure[P any](id string, err error) Outcome[P] {
	if err == nil {
		err = ErrFetchFailed
	}
	return Outcome[P]{ID: id, Err: err}
}

// OK reports whether the outcome is a success.
func (o Outcome[P]) OK() bool {
	return o.Err == nil
}

// Entry is the stored state of one item: its latest outcome and the time it
// last succeeded. UpdatedAt is zero for items that never succeeded.
type Entry[P any] struct {
	Outcome   Outcome[P]
	UpdatedAt time.Time
}

// Store maps item identifiers to their latest entry. It is merged across runs:
// Run starts from a clone of the caller's store and overwrites only the items
// it processes.
type Store[P any] map[string]Entry[P]

// Clone returns a shallow copy of the store. A nil store clones to an empty one.
func (s Store[P]) Clone() Store[P] {
	out := make(Store[P], len(s))
	for id, e := range s {
		out[id] = e
	}
	return out
}

// Succeeded returns the sorted identifiers whose latest outcome is a success.
func (s Store[P]) Succeeded() []string {
	return s.ids(true)
}

// Failed returns the sorted identifiers whose latest outcome is a failure.
func (s Store[P]) Failed() []string {
	return s.ids(false)
}

func (s Store[P]) ids(ok bool) []string {
	var out []string
	for id, e := range s {
		if e.Outcome.OK() == ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// record applies an outcome to the store. Failures keep the previous
// UpdatedAt so a failed item is never marked fresh.
func (s Store[P]) record(o Outcome[P], runStart time.Time) {
	if o.OK() {
		s[o.ID] = Entry[P]{Outcome: o, UpdatedAt: runStart}
		return
	}
	prev := s[o.ID]
	s[o.ID] = Entry[P]{Outcome: o, UpdatedAt: prev.UpdatedAt}
}
