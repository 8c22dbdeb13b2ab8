package query

import (
	"slices"

	"github.com/vietdv277/logmux/pkg/types"
)

// Aggregate computes stats over entries. Only status, method, app name and
// processing time are read, so a column projection is enough.
func Aggregate(entries []types.LogEntry) *types.Stats {
	stats := &types.Stats{
		CountByStatus:  make(map[string]int64),
		CountByMethod:  make(map[string]int64),
		CountByAppName: make(map[string]int64),
	}
	if len(entries) == 0 {
		return stats
	}

	times := make([]int64, 0, len(entries))
	var sum int64
	for i := range entries {
		e := &entries[i]
		times = append(times, e.ProcessingTimeMs)
		sum += e.ProcessingTimeMs
		if e.ProcessingTimeMs > stats.MaxProcessingTimeMs {
			stats.MaxProcessingTimeMs = e.ProcessingTimeMs
		}

		stats.CountByStatus[types.StatusKey(e.ResponseStatus)]++
		stats.CountByMethod[e.Method]++
		if e.AppName != nil {
			stats.CountByAppName[*e.AppName]++
		}
	}

	slices.Sort(times)
	stats.TotalCount = int64(len(entries))
	stats.AvgProcessingTimeMs = float64(sum) / float64(len(entries))
	stats.P99ProcessingTimeMs = P99(times)
	return stats
}

// P99 returns the 99th percentile of ascending-sorted values using
// index floor(n*0.99) clamped to n-1. An empty input yields 0.
func P99(sorted []int64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := n * 99 / 100
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// AppNames returns the sorted distinct non-null application names
func AppNames(entries []types.LogEntry) []string {
	seen := make(map[string]bool)
	names := []string{}
	for i := range entries {
		if entries[i].AppName == nil {
			continue
		}
		name := *entries[i].AppName
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
