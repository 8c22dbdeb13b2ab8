package query

import (
	"math"

	"github.com/vietdv277/logmux/pkg/types"
)

// Offset returns page*size, saturating at math.MaxInt instead of overflowing
func Offset(page, size int) int {
	if page <= 0 || size <= 0 {
		return 0
	}
	if page > math.MaxInt/size {
		return math.MaxInt
	}
	return page * size
}

// FilterAndPage filters, sorts and slices entries. It has no side effects on
// its input, so identical calls return identical results.
func FilterAndPage(entries []types.LogEntry, q types.Query) *types.PagedResult {
	q = q.Normalize()

	matched := Filter(entries, q.Filters)
	SortEntries(matched, q.Sort)

	total := int64(len(matched))
	start := Offset(q.Page, q.Size)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Size
	if end > len(matched) {
		end = len(matched)
	}

	return &types.PagedResult{
		Content:       matched[start:end:end],
		Page:          q.Page,
		Size:          q.Size,
		TotalElements: total,
		TotalPages:    types.TotalPages(total, q.Size),
	}
}

// Find returns the entry with the given id, or nil
func Find(entries []types.LogEntry, id string) *types.LogEntry {
	for i := range entries {
		if entries[i].ID == id {
			e := entries[i]
			return &e
		}
	}
	return nil
}
