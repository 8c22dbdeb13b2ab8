// Package query evaluates filters, sorting and paging over in-memory entry
// collections with the same semantics the remote backends apply server-side,
// so file-backed and server-backed sources are interchangeable to callers.
package query

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/vietdv277/logmux/pkg/types"
)

// Matcher is a compiled filter set
type Matcher struct {
	f          types.Filters
	urlPattern *regexp.Regexp
	urlNeedle  string
	method     string
	statusLo   int
	statusHi   int // exclusive
	statusOn   bool
	remote     string
	server     string
}

// NewMatcher compiles f. Compilation never fails: a status value that is
// neither a class token nor a number disables the status filter.
func NewMatcher(f types.Filters) *Matcher {
	m := &Matcher{
		f:      f,
		method: strings.ToLower(f.Method),
		remote: strings.ToLower(f.RemoteAddr),
		server: strings.ToLower(f.ServerName),
	}

	if f.URL != "" {
		if strings.Contains(f.URL, "%") {
			m.urlPattern = LikePattern(f.URL)
		} else {
			m.urlNeedle = strings.ToLower(f.URL)
		}
	}

	m.statusLo, m.statusHi, m.statusOn = StatusRange(f.StatusCode)
	return m
}

// LikePattern translates a SQL LIKE pattern using % into an anchored,
// case-insensitive regular expression.
func LikePattern(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "%")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("(?is)^" + strings.Join(parts, ".*") + "$")
}

// StatusRange maps a status filter to a half-open [lo, hi) range.
// "4xx" covers 400-499 and any integer, negative included, matches exactly.
// ok is false when there is no status filter.
func StatusRange(status string) (lo, hi int, ok bool) {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "":
		return 0, 0, false
	case "2xx", "3xx", "4xx", "5xx":
		lo = int(s[0]-'0') * 100
		return lo, lo + 100, true
	}
	if n, err := strconv.Atoi(s); err == nil && n < math.MaxInt {
		return n, n + 1, true
	}
	return 0, 0, false
}

// Match reports whether e satisfies every configured predicate
func (m *Matcher) Match(e *types.LogEntry) bool {
	f := m.f

	if f.AppName != "" && e.App() != f.AppName {
		return false
	}
	if m.urlPattern != nil && !m.urlPattern.MatchString(e.URL) {
		return false
	}
	if m.urlNeedle != "" && !strings.Contains(strings.ToLower(e.URL), m.urlNeedle) {
		return false
	}
	if m.method != "" && strings.ToLower(e.Method) != m.method {
		return false
	}
	if m.statusOn && (e.ResponseStatus < m.statusLo || e.ResponseStatus >= m.statusHi) {
		return false
	}
	if f.StartTime != nil && e.RequestTime.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.RequestTime.After(*f.EndTime) {
		return false
	}
	if f.MinProcessingTimeMs != nil && e.ProcessingTimeMs < *f.MinProcessingTimeMs {
		return false
	}
	if m.remote != "" && (e.RemoteAddr == nil || !strings.Contains(strings.ToLower(*e.RemoteAddr), m.remote)) {
		return false
	}
	if m.server != "" && (e.ServerName == nil || !strings.Contains(strings.ToLower(*e.ServerName), m.server)) {
		return false
	}
	return true
}

// Filter returns the entries matching f in their original order.
// The input slice is not modified.
func Filter(entries []types.LogEntry, f types.Filters) []types.LogEntry {
	m := NewMatcher(f)
	out := make([]types.LogEntry, 0, len(entries))
	for i := range entries {
		if m.Match(&entries[i]) {
			out = append(out, entries[i])
		}
	}
	return out
}

// InRange keeps entries whose request time falls inside r (inclusive)
func InRange(entries []types.LogEntry, r types.TimeRange) []types.LogEntry {
	return Filter(entries, types.Filters{StartTime: r.Start, EndTime: r.End})
}
