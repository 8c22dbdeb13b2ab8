package query

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/logmux/pkg/types"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func entry(id, url string, status int, ms int64, offset time.Duration) types.LogEntry {
	return types.LogEntry{
		ID:               id,
		URL:              url,
		Method:           "GET",
		ResponseStatus:   status,
		ProcessingTimeMs: ms,
		RequestTime:      base.Add(offset),
		ResponseTime:     base.Add(offset + time.Duration(ms)*time.Millisecond),
	}
}

func ids(entries []types.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestURLWildcard(t *testing.T) {
	entries := []types.LogEntry{
		entry("users", "/api/users", 200, 1, 0),
		entry("orders", "/api/orders", 200, 1, time.Minute),
	}

	got := Filter(entries, types.Filters{URL: "/api/%"})
	assert.ElementsMatch(t, []string{"users", "orders"}, ids(got))

	got = Filter(entries, types.Filters{URL: "%orders"})
	assert.Equal(t, []string{"orders"}, ids(got))

	got = Filter(entries, types.Filters{URL: "%ORDERS"})
	assert.Equal(t, []string{"orders"}, ids(got))

	// Without a wildcard the pattern is a case-insensitive substring
	got = Filter(entries, types.Filters{URL: "USERS"})
	assert.Equal(t, []string{"users"}, ids(got))

	// Regex metacharacters are literal
	got = Filter(entries, types.Filters{URL: "/api/(%"})
	assert.Empty(t, got)
}

func TestStatusFilter(t *testing.T) {
	entries := []types.LogEntry{
		entry("200", "/", 200, 1, 0),
		entry("201", "/", 201, 1, 0),
		entry("404", "/", 404, 1, 0),
		entry("500", "/", 500, 1, 0),
	}

	assert.Equal(t, []string{"404"}, ids(Filter(entries, types.Filters{StatusCode: "4xx"})))
	assert.Equal(t, []string{"200", "201"}, ids(Filter(entries, types.Filters{StatusCode: "2xx"})))
	assert.Equal(t, []string{"500"}, ids(Filter(entries, types.Filters{StatusCode: "500"})))
	assert.Len(t, Filter(entries, types.Filters{StatusCode: "teapot"}), 4)
	assert.Len(t, Filter(entries, types.Filters{StatusCode: "1xx"}), 4)
	assert.Empty(t, Filter(entries, types.Filters{StatusCode: "-1"}))
}

func TestStatusRange(t *testing.T) {
	lo, hi, ok := StatusRange("-1")
	assert.True(t, ok)
	assert.Equal(t, []int{-1, 0}, []int{lo, hi})

	_, _, ok = StatusRange("")
	assert.False(t, ok)
	_, _, ok = StatusRange("teapot")
	assert.False(t, ok)
}

func TestMethodAppAndSubstringFilters(t *testing.T) {
	a := entry("a", "/", 200, 5, 0)
	a.Method = "POST"
	a.AppName = types.StrPtr("billing")
	a.RemoteAddr = types.StrPtr("10.0.0.15")
	a.ServerName = types.StrPtr("Edge-1")

	b := entry("b", "/", 200, 50, time.Minute)
	b.AppName = types.StrPtr("Billing")

	entries := []types.LogEntry{a, b}

	assert.Equal(t, []string{"a"}, ids(Filter(entries, types.Filters{Method: "post"})))
	assert.Equal(t, []string{"a"}, ids(Filter(entries, types.Filters{AppName: "billing"})))
	assert.Equal(t, []string{"a"}, ids(Filter(entries, types.Filters{RemoteAddr: "0.0.1"})))
	assert.Equal(t, []string{"a"}, ids(Filter(entries, types.Filters{ServerName: "edge"})))

	minMs := int64(50)
	assert.Equal(t, []string{"b"}, ids(Filter(entries, types.Filters{MinProcessingTimeMs: &minMs})))
}

func TestTimeBoundsAreInclusive(t *testing.T) {
	entries := []types.LogEntry{
		entry("t0", "/", 200, 1, 0),
		entry("t1", "/", 200, 1, time.Minute),
		entry("t2", "/", 200, 1, 2*time.Minute),
	}
	start := base.Add(time.Minute)
	end := base.Add(2 * time.Minute)
	got := Filter(entries, types.Filters{StartTime: &start, EndTime: &end})
	assert.Equal(t, []string{"t1", "t2"}, ids(got))
}

func TestPaginationBoundary(t *testing.T) {
	entries := make([]types.LogEntry, 105)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("e%03d", i), "/", 200, 1, time.Duration(i)*time.Second)
	}

	res := FilterAndPage(entries, types.Query{Page: 2, Size: 50})
	assert.Equal(t, int64(105), res.TotalElements)
	assert.Equal(t, 3, res.TotalPages)
	assert.Len(t, res.Content, 5)

	// Default sort is newest first, so the last page holds the oldest entries
	assert.Equal(t, "e004", res.Content[0].ID)
	assert.Equal(t, "e000", res.Content[4].ID)

	res = FilterAndPage(entries, types.Query{Page: 9, Size: 50})
	assert.Empty(t, res.Content)
	assert.Equal(t, int64(105), res.TotalElements)

	res = FilterAndPage(entries, types.Query{Page: math.MaxInt/50 + 1, Size: 50})
	assert.Empty(t, res.Content)
	assert.Equal(t, int64(105), res.TotalElements)
}

func TestOffsetSaturates(t *testing.T) {
	assert.Equal(t, 100, Offset(2, 50))
	assert.Equal(t, 0, Offset(-1, 50))
	assert.Equal(t, math.MaxInt, Offset(math.MaxInt/50+1, 50))
}

func TestTotalsUseFilteredCount(t *testing.T) {
	entries := []types.LogEntry{
		entry("a", "/", 200, 1, 0),
		entry("b", "/", 404, 1, 0),
		entry("c", "/", 404, 1, 0),
	}
	res := FilterAndPage(entries, types.Query{Filters: types.Filters{StatusCode: "4xx"}, Size: 1})
	assert.Equal(t, int64(2), res.TotalElements)
	assert.Equal(t, 2, res.TotalPages)
}

func TestFilterAndPageIsIdempotent(t *testing.T) {
	entries := []types.LogEntry{
		entry("a", "/x", 200, 30, 0),
		entry("b", "/y", 500, 10, time.Minute),
		entry("c", "/z", 404, 20, 2*time.Minute),
	}
	q := types.Query{Sort: types.Sort{Field: types.SortProcessingTime, Dir: types.Asc}, Size: 10}

	first := FilterAndPage(entries, q)
	second := FilterAndPage(entries, q)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"b", "c", "a"}, ids(first.Content))

	// Input order untouched
	assert.Equal(t, []string{"a", "b", "c"}, ids(entries))
}

func TestSortFields(t *testing.T) {
	entries := []types.LogEntry{
		entry("a", "/b", 500, 30, 0),
		entry("b", "/a", 200, 10, time.Minute),
		entry("c", "/c", 404, 20, 2*time.Minute),
	}

	SortEntries(entries, types.Sort{Field: types.SortURL, Dir: types.Asc})
	assert.Equal(t, []string{"b", "a", "c"}, ids(entries))

	SortEntries(entries, types.Sort{Field: types.SortStatus, Dir: types.Desc})
	assert.Equal(t, []string{"a", "c", "b"}, ids(entries))

	SortEntries(entries, types.Sort{Field: "bogus", Dir: types.Desc})
	assert.Equal(t, []string{"c", "b", "a"}, ids(entries))
}

func TestP99(t *testing.T) {
	assert.Equal(t, int64(0), P99(nil))
	assert.Equal(t, int64(7), P99([]int64{7}))

	hundred := make([]int64, 100)
	for i := range hundred {
		hundred[i] = int64(i + 1)
	}
	// floor(100*0.99) = 99 -> value 100
	assert.Equal(t, int64(100), P99(hundred))

	fifty := hundred[:50]
	// floor(50*0.99) = 49 -> value 50
	assert.Equal(t, int64(50), P99(fifty))

	twoHundred := make([]int64, 200)
	for i := range twoHundred {
		twoHundred[i] = int64(i + 1)
	}
	// floor(200*0.99) = 198 -> value 199
	assert.Equal(t, int64(199), P99(twoHundred))
}

func TestAggregate(t *testing.T) {
	a := entry("a", "/", 200, 10, 0)
	a.AppName = types.StrPtr("billing")
	b := entry("b", "/", 500, 30, 0)
	b.Method = "POST"
	c := entry("c", "/", 200, 20, 0)
	c.AppName = types.StrPtr("billing")

	stats := Aggregate([]types.LogEntry{a, b, c})
	require.NotNil(t, stats)
	assert.Equal(t, int64(3), stats.TotalCount)
	assert.InDelta(t, 20.0, stats.AvgProcessingTimeMs, 0.0001)
	assert.Equal(t, int64(30), stats.MaxProcessingTimeMs)
	assert.Equal(t, int64(30), stats.P99ProcessingTimeMs)
	assert.Equal(t, map[string]int64{"200": 2, "500": 1}, stats.CountByStatus)
	assert.Equal(t, map[string]int64{"GET": 2, "POST": 1}, stats.CountByMethod)
	assert.Equal(t, map[string]int64{"billing": 2}, stats.CountByAppName)

	empty := Aggregate(nil)
	assert.Equal(t, int64(0), empty.TotalCount)
	assert.NotNil(t, empty.CountByStatus)
}

func TestAppNames(t *testing.T) {
	a := entry("a", "/", 200, 1, 0)
	a.AppName = types.StrPtr("zeta")
	b := entry("b", "/", 200, 1, 0)
	b.AppName = types.StrPtr("alpha")
	c := entry("c", "/", 200, 1, 0)
	d := entry("d", "/", 200, 1, 0)
	d.AppName = types.StrPtr("zeta")

	assert.Equal(t, []string{"alpha", "zeta"}, AppNames([]types.LogEntry{a, b, c, d}))
	assert.Equal(t, []string{}, AppNames(nil))
}
