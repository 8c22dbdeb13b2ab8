package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/logmux/internal/httpx"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

func TestBuildPredicates(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	minMs := int64(100)

	preds := BuildPredicates(types.Filters{
		AppName:             "billing",
		URL:                 "/api/%/pay",
		Method:              "post",
		StatusCode:          "4xx",
		StartTime:           &start,
		MinProcessingTimeMs: &minMs,
		RemoteAddr:          "10.0",
	})

	assert.Equal(t, []Predicate{
		{ColAppName, OpEq, "billing"},
		{ColURL, OpILike, "/api/%/pay"},
		{ColMethod, OpILike, "post"},
		{ColStatus, OpGte, int64(400)},
		{ColStatus, OpLt, int64(500)},
		{ColRequestTime, OpGte, start},
		{ColProcessingTime, OpGte, int64(100)},
		{ColRemoteAddr, OpILike, "%10.0%"},
	}, preds)
}

func TestBuildPredicatesExactStatusAndSubstringURL(t *testing.T) {
	preds := BuildPredicates(types.Filters{URL: "pay", StatusCode: "404"})
	assert.Equal(t, []Predicate{
		{ColURL, OpILike, "%pay%"},
		{ColStatus, OpEq, int64(404)},
	}, preds)

	assert.Empty(t, BuildPredicates(types.Filters{StatusCode: "weird"}))
	assert.Equal(t, []Predicate{{ColStatus, OpEq, int64(-1)}}, BuildPredicates(types.Filters{StatusCode: "-1"}))
}

func TestSortColumn(t *testing.T) {
	assert.Equal(t, ColProcessingTime, SortColumn(types.SortProcessingTime))
	assert.Equal(t, ColRequestTime, SortColumn("bogus"))
}

func TestContentRangeTotal(t *testing.T) {
	assert.Equal(t, int64(1234), ContentRangeTotal("0-49/1234", 50))
	assert.Equal(t, int64(0), ContentRangeTotal("*/0", 3))
	assert.Equal(t, int64(3), ContentRangeTotal("0-2/*", 3))
	assert.Equal(t, int64(7), ContentRangeTotal("", 7))
}

func restSource(url string) types.LogSource {
	return types.LogSource{
		ID:         "sb-1",
		Name:       "Hosted",
		Type:       types.SourceSupabase,
		ProjectURL: url,
		AccessKey:  "anon-key",
		Table:      "api_logs",
	}
}

func TestPostgRESTFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/api_logs", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))

		q := r.URL.Query()
		assert.Equal(t, "*", q.Get("select"))
		assert.Equal(t, "eq.billing", q.Get("app_name"))
		assert.Equal(t, "ilike.*pay*", q.Get("url"))
		assert.Equal(t, []string{"gte.500", "lt.600"}, q["response_status"])
		assert.Equal(t, "request_time.desc", q.Get("order"))
		assert.Equal(t, "20", q.Get("offset"))
		assert.Equal(t, "10", q.Get("limit"))

		w.Header().Set("Content-Range", "20-20/21")
		_, _ = w.Write([]byte(`[{"id":"r1","app_name":"billing","url":"/pay","response_status":503,
			"request_time":"2024-05-01 10:00:00+00","processing_time_ms":42}]`))
	}))
	defer srv.Close()

	p := NewProvider(httpx.New(), nil, nil)
	res, err := p.FetchPage(context.Background(), restSource(srv.URL), types.Query{
		Filters: types.Filters{AppName: "billing", URL: "pay", StatusCode: "5xx"},
		Page:    2,
		Size:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21), res.TotalElements)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Content, 1)

	e := res.Content[0]
	assert.Equal(t, "r1", e.ID)
	assert.Equal(t, "billing", e.App())
	assert.Equal(t, 503, e.ResponseStatus)
	assert.Equal(t, int64(42), e.ProcessingTimeMs)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), e.RequestTime.UTC())
}

func TestPostgRESTErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"42703","message":"column api_logs.nope does not exist"}`))
	}))
	defer srv.Close()

	p := NewProvider(httpx.New(), nil, nil)
	_, err := p.FetchPage(context.Background(), restSource(srv.URL), types.Query{})
	require.Error(t, err)
	assert.Equal(t, "supabase: column api_logs.nope does not exist", err.Error())
}

func TestMissingCredentials(t *testing.T) {
	p := NewProvider(httpx.New(), nil, nil)
	err := p.TestConnection(context.Background(), types.LogSource{Name: "x", Type: types.SourceSupabase})
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

// fakeTable serves a fixed row set, honouring offset and limit
type fakeTable struct {
	mu    sync.Mutex
	rows  []map[string]any
	calls []Selection
}

func (f *fakeTable) Select(_ context.Context, sel Selection) ([]map[string]any, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sel)

	var matched []map[string]any
	for _, row := range f.rows {
		if matches(row, sel.Predicates) {
			matched = append(matched, row)
		}
	}
	lo := min(sel.Offset, len(matched))
	hi := len(matched)
	if sel.Limit > 0 {
		hi = min(lo+sel.Limit, len(matched))
	}
	return matched[lo:hi], int64(len(matched)), nil
}

// matches understands the equality and not-null operators only
func matches(row map[string]any, preds []Predicate) bool {
	for _, pred := range preds {
		switch pred.Op {
		case OpEq:
			if fmt.Sprint(row[pred.Column]) != fmt.Sprint(pred.Value) {
				return false
			}
		case OpNotNull:
			if row[pred.Column] == nil {
				return false
			}
		}
	}
	return true
}

func withTable(p *Provider, t Table) {
	p.dial = func(context.Context, types.LogSource) (Table, error) { return t, nil }
}

func TestFetchStatsScansInChunks(t *testing.T) {
	ft := &fakeTable{}
	for i := 0; i < 1500; i++ {
		app := "billing"
		if i%3 == 0 {
			app = "search"
		}
		ft.rows = append(ft.rows, map[string]any{
			"id":                 fmt.Sprintf("r%04d", i),
			"response_status":    int64(200),
			"method":             "GET",
			"app_name":           app,
			"processing_time_ms": int64(i),
		})
	}

	p := NewProvider(httpx.New(), nil, nil)
	withTable(p, ft)

	stats, err := p.FetchStats(context.Background(), restSource("http://unused"), types.StatsQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), stats.TotalCount)
	assert.Equal(t, int64(1499), stats.MaxProcessingTimeMs)
	assert.Equal(t, int64(1500), stats.CountByStatus["200"])
	assert.Equal(t, int64(500), stats.CountByAppName["search"])

	require.Len(t, ft.calls, 2)
	assert.Equal(t, 0, ft.calls[0].Offset)
	assert.Equal(t, ChunkSize, ft.calls[1].Offset)
	assert.Equal(t, StatsColumns, ft.calls[0].Columns)
	assert.Equal(t, ColID, ft.calls[0].OrderBy)
}

func TestFetchPageHugePageIndex(t *testing.T) {
	ft := &fakeTable{rows: []map[string]any{{"id": "a"}, {"id": "b"}}}
	p := NewProvider(httpx.New(), nil, nil)
	withTable(p, ft)

	res, err := p.FetchPage(context.Background(), restSource("http://unused"), types.Query{Page: math.MaxInt/50 + 1, Size: 50})
	require.NoError(t, err)
	assert.Empty(t, res.Content)
	assert.Equal(t, int64(2), res.TotalElements)
	require.Len(t, ft.calls, 1)
	assert.Equal(t, math.MaxInt, ft.calls[0].Offset)
}

func TestFetchAppNamesAndEntry(t *testing.T) {
	ft := &fakeTable{rows: []map[string]any{
		{"id": "a", "app_name": "search"},
		{"id": "b", "app_name": "billing"},
		{"id": "c", "app_name": "search"},
		{"id": "d", "app_name": nil},
	}}
	p := NewProvider(httpx.New(), nil, nil)
	withTable(p, ft)
	ctx := context.Background()
	src := restSource("http://unused")

	apps, err := p.FetchAppNames(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "search"}, apps)
	assert.Equal(t, []Predicate{{Column: ColAppName, Op: OpNotNull}}, ft.calls[0].Predicates)

	e, err := p.FetchEntry(ctx, src, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", e.ID)

	_, err = p.FetchEntry(ctx, src, "zzz")
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestInvalidateDropsClient(t *testing.T) {
	dials := 0
	p := NewProvider(httpx.New(), nil, nil)
	p.dial = func(context.Context, types.LogSource) (Table, error) {
		dials++
		return &fakeTable{}, nil
	}
	ctx := context.Background()
	src := restSource("http://unused")

	require.NoError(t, p.TestConnection(ctx, src))
	require.NoError(t, p.TestConnection(ctx, src))
	assert.Equal(t, 1, dials)

	p.Invalidate(src)
	require.NoError(t, p.TestConnection(ctx, src))
	assert.Equal(t, 2, dials)
}

func newMockTable(t *testing.T) (*SQLTable, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLTable(db), mock
}

func TestSQLFetchPage(t *testing.T) {
	table, mock := newMockTable(t)
	reqTime := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count(*) FROM "api_logs" WHERE "app_name" = $1 AND "url" ILIKE $2`).
		WithArgs("billing", "%pay%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery(`SELECT * FROM "api_logs" WHERE "app_name" = $1 AND "url" ILIKE $2 ORDER BY "request_time" DESC LIMIT 5 OFFSET 5`).
		WithArgs("billing", "%pay%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "app_name", "url", "response_status", "request_time", "query_params"}).
			AddRow("r1", "billing", "/pay", int64(200), reqTime, []byte(`{"a":["1"]}`)))

	p := NewProvider(httpx.New(), nil, nil)
	withTable(p, table)

	src := types.LogSource{ID: "db", Name: "Direct", Type: types.SourceSupabase, DatabaseURL: "postgres://localhost/logs"}
	res, err := p.FetchPage(context.Background(), src, types.Query{
		Filters: types.Filters{AppName: "billing", URL: "pay"},
		Page:    1,
		Size:    5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.TotalElements)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Content, 1)
	assert.Equal(t, reqTime, res.Content[0].RequestTime)
	assert.Equal(t, []string{"1"}, res.Content[0].QueryParams["a"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLNotNullAndProjection(t *testing.T) {
	table, mock := newMockTable(t)
	mock.ExpectQuery(`SELECT "id", "app_name" FROM "public"."api_logs" WHERE "app_name" IS NOT NULL ORDER BY "id" ASC LIMIT 1000`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "app_name"}).AddRow("a", "billing"))

	rows, total, err := table.Select(context.Background(), Selection{
		Table:      "public.api_logs",
		Columns:    []string{ColID, ColAppName},
		Predicates: []Predicate{{Column: ColAppName, Op: OpNotNull}},
		OrderBy:    ColID,
		Limit:      ChunkSize,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), total)
	assert.Equal(t, []map[string]any{{"id": "a", "app_name": "billing"}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLErrorPropagates(t *testing.T) {
	table, mock := newMockTable(t)
	mock.ExpectQuery(`SELECT "id" FROM "api_logs" LIMIT 1`).
		WillReturnError(errors.New(`pq: relation "api_logs" does not exist`))

	_, _, err := table.Select(context.Background(), Selection{Table: "api_logs", Columns: []string{ColID}, Limit: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `relation "api_logs" does not exist`)
	assert.False(t, errors.Is(err, sql.ErrNoRows))
}
