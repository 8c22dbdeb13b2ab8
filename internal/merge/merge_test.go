package merge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// stubProvider returns canned pages keyed by source id
type stubProvider struct {
	pages map[string]*types.PagedResult
	apps  map[string][]string
	stats func(src types.LogSource) (*types.Stats, error)
	fail  map[string]error
	calls atomic.Int32
}

func (s *stubProvider) FetchPage(_ context.Context, src types.LogSource, _ types.Query) (*types.PagedResult, error) {
	s.calls.Add(1)
	if err := s.fail[src.ID]; err != nil {
		return nil, err
	}
	return s.pages[src.ID], nil
}

func (s *stubProvider) FetchStats(_ context.Context, src types.LogSource, _ types.StatsQuery) (*types.Stats, error) {
	if s.stats == nil {
		return nil, provider.ErrNotSupported
	}
	return s.stats(src)
}

func (s *stubProvider) FetchAppNames(_ context.Context, src types.LogSource) ([]string, error) {
	if err := s.fail[src.ID]; err != nil {
		return nil, err
	}
	return s.apps[src.ID], nil
}

func (s *stubProvider) TestConnection(context.Context, types.LogSource) error { return nil }

func at(minute int) time.Time {
	return time.Date(2024, 5, 1, 10, minute, 0, 0, time.UTC)
}

func entries(prefix string, n int) []types.LogEntry {
	out := make([]types.LogEntry, n)
	for i := range out {
		out[i] = types.LogEntry{ID: fmt.Sprintf("%s-%d", prefix, i), RequestTime: at(i)}
	}
	return out
}

func newOrchestrator(stub *stubProvider) *Orchestrator {
	reg := provider.NewRegistry()
	reg.Register(types.SourceAPI, stub)
	return New(reg)
}

var (
	srcA = types.LogSource{ID: "a", Name: "Alpha", Type: types.SourceAPI, Color: "#3b82f6"}
	srcB = types.LogSource{ID: "b", Name: "Beta", Type: types.SourceAPI, Color: "#10b981"}
)

func TestFetchEmptySelection(t *testing.T) {
	stub := &stubProvider{}
	res := newOrchestrator(stub).Fetch(context.Background(), nil, types.Query{Page: 2, Size: 10})

	assert.Empty(t, res.Content)
	assert.NotNil(t, res.Content)
	assert.Empty(t, res.Errors)
	assert.Equal(t, int64(0), res.TotalElements)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestFetchPartialFailure(t *testing.T) {
	stub := &stubProvider{
		pages: map[string]*types.PagedResult{
			"a": {Content: entries("a", 10), TotalElements: 10},
		},
		fail: map[string]error{"b": errors.New("HTTP 504: upstream timed out")},
	}

	res := newOrchestrator(stub).Fetch(context.Background(), []types.LogSource{srcA, srcB}, types.Query{})
	assert.Len(t, res.Content, 10)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "b", res.Errors[0].SourceID)
	assert.Equal(t, "Beta", res.Errors[0].SourceName)
	assert.Equal(t, "HTTP 504: upstream timed out", res.Errors[0].Message)
	assert.Equal(t, int64(10), res.TotalElements)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestFetchTagsAndResorts(t *testing.T) {
	stub := &stubProvider{pages: map[string]*types.PagedResult{
		"a": {Content: []types.LogEntry{{ID: "a2", RequestTime: at(2)}, {ID: "a0", RequestTime: at(0)}}, TotalElements: 60},
		"b": {Content: []types.LogEntry{{ID: "b1", RequestTime: at(1)}}, TotalElements: 45},
	}}

	res := newOrchestrator(stub).Fetch(context.Background(), []types.LogSource{srcA, srcB}, types.Query{Size: 50})
	require.Len(t, res.Content, 3)
	assert.Equal(t, "a2", res.Content[0].ID)
	assert.Equal(t, "b1", res.Content[1].ID)
	assert.Equal(t, "a0", res.Content[2].ID)

	assert.Equal(t, "Beta", res.Content[1].SourceName)
	assert.Equal(t, "#10b981", res.Content[1].SourceColor)
	assert.Equal(t, "a", res.Content[0].SourceID)

	assert.Equal(t, int64(105), res.TotalElements)
	assert.Equal(t, 3, res.TotalPages)
}

func TestFetchUnknownSourceType(t *testing.T) {
	stub := &stubProvider{pages: map[string]*types.PagedResult{"a": {Content: entries("a", 1), TotalElements: 1}}}
	odd := types.LogSource{ID: "x", Name: "Odd", Type: "ftp"}

	res := newOrchestrator(stub).Fetch(context.Background(), []types.LogSource{srcA, odd}, types.Query{})
	assert.Len(t, res.Content, 1)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "unknown source type")
}

func TestAppNamesUnion(t *testing.T) {
	stub := &stubProvider{apps: map[string][]string{
		"a": {"billing", "search"},
		"b": {"auth", "search"},
	}}
	names, errs := newOrchestrator(stub).AppNames(context.Background(), []types.LogSource{srcA, srcB})
	assert.Equal(t, []string{"auth", "billing", "search"}, names)
	assert.Empty(t, errs)
}

func TestStatsFanOut(t *testing.T) {
	// a only answers once b has been asked, so a serial loop over a then b
	// would time out
	bAsked := make(chan struct{})
	stub := &stubProvider{stats: func(src types.LogSource) (*types.Stats, error) {
		switch src.ID {
		case "a":
			select {
			case <-bAsked:
				return &types.Stats{TotalCount: 1}, nil
			case <-time.After(2 * time.Second):
				return nil, errors.New("timed out waiting for b")
			}
		case "b":
			close(bAsked)
			return nil, errors.New("boom")
		}
		return nil, nil
	}}

	res := newOrchestrator(stub).Stats(context.Background(), []types.LogSource{srcA, srcB}, types.StatsQuery{})
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].Source.ID)
	require.NoError(t, res[0].Err)
	assert.Equal(t, int64(1), res[0].Stats.TotalCount)
	assert.Equal(t, "b", res[1].Source.ID)
	assert.EqualError(t, res[1].Err, "boom")
}

func TestQueryKey(t *testing.T) {
	sources := []types.LogSource{srcA, srcB}
	base := types.Query{Filters: types.Filters{AppName: "billing"}}

	assert.Equal(t, QueryKey(sources, base), QueryKey(sources, base))
	assert.Equal(t, QueryKey(sources, base), QueryKey(sources, types.Query{Filters: base.Filters, Size: types.DefaultPageSize}))

	refreshed := base
	refreshed.Tick = 1
	assert.NotEqual(t, QueryKey(sources, base), QueryKey(sources, refreshed))
	assert.NotEqual(t, QueryKey(sources, base), QueryKey(sources[:1], base))
}

func TestTrackerDiscardsStale(t *testing.T) {
	var tr Tracker
	tr.Begin("first")
	tr.Begin("second")
	assert.False(t, tr.Current("first"))
	assert.True(t, tr.Current("second"))
}
