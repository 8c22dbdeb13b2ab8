package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vietdv277/logmux/internal/httpx"
)

// PostgREST reads the table through the project's REST gateway
type PostgREST struct {
	client     *httpx.Client
	projectURL string
	key        string
}

// NewPostgREST creates a PostgREST table reader authenticated with key
func NewPostgREST(client *httpx.Client, projectURL, key string) *PostgREST {
	return &PostgREST{client: client, projectURL: projectURL, key: key}
}

// Select implements Table
func (p *PostgREST) Select(ctx context.Context, sel Selection) ([]map[string]any, int64, error) {
	req := httpx.Get(httpx.JoinURL(p.projectURL, "rest", "v1", sel.Table)).
		Header("apikey", p.key).
		Header("Authorization", "Bearer "+p.key)

	columns := "*"
	if len(sel.Columns) > 0 {
		columns = strings.Join(sel.Columns, ",")
	}
	req.Query("select", columns)

	for _, pred := range sel.Predicates {
		req.Query(pred.Column, restFilter(pred))
	}
	if sel.OrderBy != "" {
		dir := "asc"
		if sel.Desc {
			dir = "desc"
		}
		req.Query("order", sel.OrderBy+"."+dir)
	}
	if sel.Offset > 0 {
		req.Query("offset", strconv.Itoa(sel.Offset))
	}
	if sel.Limit > 0 {
		req.Query("limit", strconv.Itoa(sel.Limit))
	}
	if sel.Count {
		req.Header("Prefer", "count=exact")
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, 0, restError(err)
	}

	var rows []map[string]any
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, 0, fmt.Errorf("supabase: decode rows: %w", err)
	}

	total := int64(-1)
	if sel.Count {
		total = ContentRangeTotal(resp.Header.Get("Content-Range"), len(rows))
	}
	return rows, total, nil
}

// restFilter renders a predicate in PostgREST operator syntax
func restFilter(pred Predicate) string {
	switch pred.Op {
	case OpNotNull:
		return "not.is.null"
	case OpILike:
		return "ilike." + strings.ReplaceAll(formatValue(pred.Value), "%", "*")
	default:
		return string(pred.Op) + "." + formatValue(pred.Value)
	}
}

// ContentRangeTotal extracts the total from a "0-49/1234" header, falling
// back to fallback when the total is absent or unknown.
func ContentRangeTotal(header string, fallback int) int64 {
	_, total, ok := strings.Cut(header, "/")
	if !ok || total == "*" {
		return int64(fallback)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil {
		return int64(fallback)
	}
	return n
}

// restError surfaces the gateway's JSON error message when it sent one
func restError(err error) error {
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(httpErr.Body, &body) == nil && body.Message != "" {
		return fmt.Errorf("supabase: %s", body.Message)
	}
	return fmt.Errorf("supabase: %w", err)
}
