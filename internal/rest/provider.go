// Package rest implements the "api" source kind: a paginating REST backend
// that filters, sorts and aggregates server-side.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vietdv277/logmux/internal/httpx"
	"github.com/vietdv277/logmux/internal/logfile"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// APIKeyHeader carries the optional API key on every call
const APIKeyHeader = "X-Api-Key"

// wireSortFields maps each sortable field to its snake_case wire token
var wireSortFields = map[types.SortField]string{
	types.SortRequestTime:    "request_time",
	types.SortProcessingTime: "processing_time_ms",
	types.SortStatus:         "response_status",
	types.SortURL:            "url",
	types.SortMethod:         "method",
	types.SortAppName:        "app_name",
}

// WireSortField returns the wire token for field, request_time when unknown
func WireSortField(field types.SortField) string {
	if token, ok := wireSortFields[field]; ok {
		return token
	}
	return "request_time"
}

// Provider talks to the REST backend
type Provider struct {
	client  *httpx.Client
	secrets provider.SecretResolver
}

// NewProvider creates a REST provider
func NewProvider(client *httpx.Client, secrets provider.SecretResolver) *Provider {
	if secrets == nil {
		secrets = provider.LiteralSecrets{}
	}
	return &Provider{client: client, secrets: secrets}
}

// Client returns the HTTP client shared with layered adapters
func (p *Provider) Client() *httpx.Client {
	return p.client
}

// Request starts a GET for path under the source's base URL and base path,
// with the API key header when one is configured.
func (p *Provider) Request(ctx context.Context, src types.LogSource, path ...string) (*httpx.Request, error) {
	if src.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s has no base URL", provider.ErrNotConfigured, src.Name)
	}
	key, err := p.secrets.Resolve(ctx, src.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API key: %w", err)
	}
	parts := append([]string{src.BasePath}, path...)
	return httpx.Get(httpx.JoinURL(src.BaseURL, parts...)).Header(APIKeyHeader, key), nil
}

type pageResponse struct {
	Content       []map[string]any `json:"content"`
	Page          int              `json:"page"`
	Size          int              `json:"size"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
}

// FetchPage implements provider.SourceProvider
func (p *Provider) FetchPage(ctx context.Context, src types.LogSource, q types.Query) (*types.PagedResult, error) {
	q = q.Normalize()

	req, err := p.Request(ctx, src, "logs")
	if err != nil {
		return nil, err
	}
	applyFilters(req, q.Filters)
	req.Query("page", strconv.Itoa(q.Page)).
		Query("size", strconv.Itoa(q.Size)).
		Query("sortBy", WireSortField(q.Sort.Field)).
		Query("sortDir", string(q.Sort.Dir))

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var page pageResponse
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	content := make([]types.LogEntry, 0, len(page.Content))
	for _, rec := range page.Content {
		content = append(content, logfile.NormalizeRecord(rec))
	}

	totalPages := page.TotalPages
	if totalPages == 0 && page.TotalElements > 0 {
		totalPages = types.TotalPages(page.TotalElements, q.Size)
	}

	return &types.PagedResult{
		Content:       content,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: page.TotalElements,
		TotalPages:    totalPages,
	}, nil
}

// FetchStats implements provider.SourceProvider
func (p *Provider) FetchStats(ctx context.Context, src types.LogSource, q types.StatsQuery) (*types.Stats, error) {
	req, err := p.Request(ctx, src, "logs", "stats")
	if err != nil {
		return nil, err
	}
	req.Query("startTime", formatTime(q.Range.Start)).
		Query("endTime", formatTime(q.Range.End))

	var stats types.Stats
	if err := p.client.JSON(ctx, req, &stats); err != nil {
		return nil, err
	}
	if stats.CountByStatus == nil {
		stats.CountByStatus = map[string]int64{}
	}
	if stats.CountByMethod == nil {
		stats.CountByMethod = map[string]int64{}
	}
	if stats.CountByAppName == nil {
		stats.CountByAppName = map[string]int64{}
	}
	return &stats, nil
}

// FetchAppNames implements provider.SourceProvider
func (p *Provider) FetchAppNames(ctx context.Context, src types.LogSource) ([]string, error) {
	req, err := p.Request(ctx, src, "logs", "apps")
	if err != nil {
		return nil, err
	}
	names := []string{}
	if err := p.client.JSON(ctx, req, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// TestConnection fetches a single-row page
func (p *Provider) TestConnection(ctx context.Context, src types.LogSource) error {
	_, err := p.FetchPage(ctx, src, types.Query{Size: 1})
	return err
}

// FetchEntry implements provider.EntryFetcher
func (p *Provider) FetchEntry(ctx context.Context, src types.LogSource, id string) (*types.LogEntry, error) {
	req, err := p.Request(ctx, src, "logs", url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var rec map[string]any
	if err := p.client.JSON(ctx, req, &rec); err != nil {
		var httpErr *httpx.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", provider.ErrNotFound, id)
		}
		return nil, err
	}
	e := logfile.NormalizeRecord(rec)
	return &e, nil
}

func applyFilters(req *httpx.Request, f types.Filters) {
	req.Query("appName", f.AppName).
		Query("method", f.Method).
		Query("url", f.URL).
		Query("statusCode", f.StatusCode).
		Query("startTime", formatTime(f.StartTime)).
		Query("endTime", formatTime(f.EndTime)).
		Query("remoteAddr", f.RemoteAddr).
		Query("serverName", f.ServerName)
	if f.MinProcessingTimeMs != nil {
		req.Query("minProcessingTimeMs", strconv.FormatInt(*f.MinProcessingTimeMs, 10))
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
