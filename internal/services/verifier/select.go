package verifier

import "github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"

// SelectPending returns the listed ASINs that need a check, in list order.
// An ASIN is pending when it has no result or its verdict is unknown; a
// failed check records an unknown verdict, so failures are selected again.
// With force every listed ASIN is returned.
func SelectPending(entries []sortable.ListEntry, results map[string]sortable.Result, force bool) []string {
	pending := make([]string, 0, len(entries))
	for _, e := range entries {
		if force {
			pending = append(pending, e.ASIN)
			continue
		}
		if r, ok := results[e.ASIN]; ok && r.IsSortable.Known() {
			continue
		}
		pending = append(pending, e.ASIN)
	}
	return pending
}
