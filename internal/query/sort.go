package query

import (
	"cmp"
	"sort"
	"strings"

	"github.com/vietdv277/logmux/pkg/types"
)

// Compare orders a and b by field in ascending natural order.
// Numeric fields compare numerically, text fields lexicographically and
// timestamps chronologically. Unknown fields fall back to request time.
func Compare(a, b *types.LogEntry, field types.SortField) int {
	switch field {
	case types.SortProcessingTime:
		return cmp.Compare(a.ProcessingTimeMs, b.ProcessingTimeMs)
	case types.SortStatus:
		return cmp.Compare(a.ResponseStatus, b.ResponseStatus)
	case types.SortURL:
		return strings.Compare(a.URL, b.URL)
	case types.SortMethod:
		return strings.Compare(a.Method, b.Method)
	case types.SortAppName:
		return strings.Compare(a.App(), b.App())
	case types.SortServerName:
		return strings.Compare(a.Server(), b.Server())
	case types.SortRemoteAddr:
		return strings.Compare(a.Remote(), b.Remote())
	case types.SortResponseTime:
		return a.ResponseTime.Compare(b.ResponseTime)
	default:
		return a.RequestTime.Compare(b.RequestTime)
	}
}

// SortEntries sorts entries in place. Ties keep their input order.
func SortEntries(entries []types.LogEntry, s types.Sort) {
	desc := s.Dir != types.Asc
	sort.SliceStable(entries, func(i, j int) bool {
		c := Compare(&entries[i], &entries[j], s.Field)
		if desc {
			return c > 0
		}
		return c < 0
	})
}
