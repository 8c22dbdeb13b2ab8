// Package supabase implements the "supabase" source kind: a hosted Postgres
// table read through PostgREST or, when a database URL is configured, over
// a direct connection. Filters, sort and pagination run server-side; stats
// are aggregated client-side from a narrow projection.
package supabase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vietdv277/logmux/internal/cache"
	"github.com/vietdv277/logmux/internal/httpx"
	"github.com/vietdv277/logmux/internal/logfile"
	"github.com/vietdv277/logmux/internal/query"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// ChunkSize is the row count of each projection request
const ChunkSize = 1000

// DefaultTable is read when a source names no table
const DefaultTable = "api_logs"

// Provider reads access logs from a Supabase project
type Provider struct {
	http    *httpx.Client
	secrets provider.SecretResolver
	clients *cache.Clients[Table]
	dial    func(ctx context.Context, src types.LogSource) (Table, error)
}

// NewProvider creates a Supabase provider
func NewProvider(client *httpx.Client, secrets provider.SecretResolver, clients *cache.Clients[Table]) *Provider {
	if secrets == nil {
		secrets = provider.LiteralSecrets{}
	}
	if clients == nil {
		clients = cache.NewClients[Table]()
	}
	p := &Provider{http: client, secrets: secrets, clients: clients}
	p.dial = p.connect
	return p
}

func clientKey(src types.LogSource) string {
	if src.DatabaseURL != "" {
		return cache.Key("pg", src.DatabaseURL)
	}
	return cache.Key("rest", src.ProjectURL, src.AccessKey)
}

func tableName(src types.LogSource) string {
	if src.Table == "" {
		return DefaultTable
	}
	return src.Table
}

func (p *Provider) table(ctx context.Context, src types.LogSource) (Table, error) {
	return p.clients.GetOrCreate(clientKey(src), func() (Table, error) {
		return p.dial(ctx, src)
	})
}

func (p *Provider) connect(ctx context.Context, src types.LogSource) (Table, error) {
	if src.DatabaseURL != "" {
		dsn, err := p.secrets.Resolve(ctx, src.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database URL: %w", err)
		}
		return OpenSQL(dsn)
	}
	if src.ProjectURL == "" || src.AccessKey == "" {
		return nil, fmt.Errorf("%w: %s needs a project URL and access key", provider.ErrNotConfigured, src.Name)
	}
	key, err := p.secrets.Resolve(ctx, src.AccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access key: %w", err)
	}
	return NewPostgREST(p.http, src.ProjectURL, key), nil
}

// FetchPage implements provider.SourceProvider
func (p *Provider) FetchPage(ctx context.Context, src types.LogSource, q types.Query) (*types.PagedResult, error) {
	q = q.Normalize()
	t, err := p.table(ctx, src)
	if err != nil {
		return nil, err
	}

	rows, total, err := t.Select(ctx, Selection{
		Table:      tableName(src),
		Predicates: BuildPredicates(q.Filters),
		OrderBy:    SortColumn(q.Sort.Field),
		Desc:       q.Sort.Dir == types.Desc,
		Offset:     query.Offset(q.Page, q.Size),
		Limit:      q.Size,
		Count:      true,
	})
	if err != nil {
		return nil, err
	}

	content := make([]types.LogEntry, 0, len(rows))
	for _, row := range rows {
		content = append(content, logfile.NormalizeRecord(row))
	}
	if total < 0 {
		total = int64(len(content))
	}
	return &types.PagedResult{
		Content:       content,
		Page:          q.Page,
		Size:          q.Size,
		TotalElements: total,
		TotalPages:    types.TotalPages(total, q.Size),
	}, nil
}

// FetchStats pulls the stats projection in chunks and aggregates it
func (p *Provider) FetchStats(ctx context.Context, src types.LogSource, q types.StatsQuery) (*types.Stats, error) {
	t, err := p.table(ctx, src)
	if err != nil {
		return nil, err
	}
	rows, err := p.scan(ctx, t, Selection{
		Table:      tableName(src),
		Columns:    StatsColumns,
		Predicates: rangePredicates(q.Range),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]types.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, logfile.NormalizeRecord(row))
	}
	return query.Aggregate(entries), nil
}

// FetchAppNames implements provider.SourceProvider
func (p *Provider) FetchAppNames(ctx context.Context, src types.LogSource) ([]string, error) {
	t, err := p.table(ctx, src)
	if err != nil {
		return nil, err
	}
	rows, err := p.scan(ctx, t, Selection{
		Table:      tableName(src),
		Columns:    []string{ColID, ColAppName},
		Predicates: []Predicate{{Column: ColAppName, Op: OpNotNull}},
	})
	if err != nil {
		return nil, err
	}

	entries := make([]types.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, logfile.NormalizeRecord(row))
	}
	return query.AppNames(entries), nil
}

// TestConnection selects a single row
func (p *Provider) TestConnection(ctx context.Context, src types.LogSource) error {
	t, err := p.table(ctx, src)
	if err != nil {
		return err
	}
	_, _, err = t.Select(ctx, Selection{Table: tableName(src), Columns: []string{ColID}, Limit: 1})
	return err
}

// FetchEntry implements provider.EntryFetcher
func (p *Provider) FetchEntry(ctx context.Context, src types.LogSource, id string) (*types.LogEntry, error) {
	t, err := p.table(ctx, src)
	if err != nil {
		return nil, err
	}
	rows, _, err := t.Select(ctx, Selection{
		Table:      tableName(src),
		Predicates: []Predicate{{Column: ColID, Op: OpEq, Value: id}},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", provider.ErrNotFound, id)
	}
	e := logfile.NormalizeRecord(rows[0])
	return &e, nil
}

// Invalidate drops the cached connection for the source's credentials
func (p *Provider) Invalidate(src types.LogSource) {
	key := clientKey(src)
	if t, ok := p.clients.Get(key); ok {
		if c, ok := t.(io.Closer); ok {
			_ = c.Close()
		}
	}
	p.clients.Delete(key)
}

// scan reads every row matching sel, ChunkSize rows at a time, ordered by id
func (p *Provider) scan(ctx context.Context, t Table, sel Selection) ([]map[string]any, error) {
	sel.OrderBy = ColID
	sel.Limit = ChunkSize

	var all []map[string]any
	for offset := 0; ; offset += ChunkSize {
		sel.Offset = offset
		rows, _, err := t.Select(ctx, sel)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < ChunkSize {
			break
		}
	}
	slog.DebugContext(ctx, "projection scanned", "table", sel.Table, "rows", len(all))
	return all, nil
}
