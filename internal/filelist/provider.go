// Package filelist implements the "file" source kind. With a directory or
// file format configured the source lists and downloads batch files over
// HTTP; otherwise it is a plain REST backend.
package filelist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vietdv277/logmux/internal/batch"
	"github.com/vietdv277/logmux/internal/query"
	"github.com/vietdv277/logmux/internal/rest"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// Provider serves file-listing sources
type Provider struct {
	rest   *rest.Provider
	loader *batch.Loader
}

// NewProvider creates a file-listing provider on top of the REST transport
func NewProvider(r *rest.Provider, loader *batch.Loader) *Provider {
	return &Provider{rest: r, loader: loader}
}

type fetcher struct {
	p   *Provider
	src types.LogSource
}

func (f fetcher) ListFiles(ctx context.Context) ([]types.FileInfo, error) {
	req, err := f.p.rest.Request(ctx, f.src, "files")
	if err != nil {
		return nil, err
	}
	req.Query("directory", f.src.Directory).
		Query("maxFiles", strconv.Itoa(f.src.FileLimit())).
		Query("format", f.src.FileFormat)

	files := []types.FileInfo{}
	if err := f.p.rest.Client().JSON(ctx, req, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (f fetcher) ReadFile(ctx context.Context, file types.FileInfo) ([]byte, error) {
	req, err := f.p.rest.Request(ctx, f.src, "files", "content")
	if err != nil {
		return nil, err
	}
	req.Query("path", file.Path)

	resp, err := f.p.rest.Client().Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (p *Provider) entries(ctx context.Context, src types.LogSource, tick int64, current bool) ([]types.LogEntry, error) {
	req := batch.Request{
		SourceID: src.ID,
		Tick:     tick,
		Format:   src.FileFormat,
		MaxFiles: src.FileLimit(),
	}
	f := fetcher{p: p, src: src}
	if current {
		return p.loader.LoadCurrent(ctx, req, f)
	}
	return p.loader.Load(ctx, req, f)
}

// FetchPage implements provider.SourceProvider
func (p *Provider) FetchPage(ctx context.Context, src types.LogSource, q types.Query) (*types.PagedResult, error) {
	if !src.FileMode() {
		return p.rest.FetchPage(ctx, src, q)
	}
	entries, err := p.entries(ctx, src, q.Tick, false)
	if err != nil {
		return nil, err
	}
	return query.FilterAndPage(entries, q), nil
}

// FetchStats implements provider.SourceProvider
func (p *Provider) FetchStats(ctx context.Context, src types.LogSource, q types.StatsQuery) (*types.Stats, error) {
	if !src.FileMode() {
		return p.rest.FetchStats(ctx, src, q)
	}
	entries, err := p.entries(ctx, src, q.Tick, true)
	if err != nil {
		return nil, err
	}
	return query.Aggregate(query.InRange(entries, q.Range)), nil
}

// FetchAppNames implements provider.SourceProvider
func (p *Provider) FetchAppNames(ctx context.Context, src types.LogSource) ([]string, error) {
	if !src.FileMode() {
		return p.rest.FetchAppNames(ctx, src)
	}
	entries, err := p.entries(ctx, src, 0, true)
	if err != nil {
		return nil, err
	}
	return query.AppNames(entries), nil
}

// TestConnection lists files in file mode and fetches one row otherwise
func (p *Provider) TestConnection(ctx context.Context, src types.LogSource) error {
	if !src.FileMode() {
		return p.rest.TestConnection(ctx, src)
	}
	_, err := fetcher{p: p, src: src}.ListFiles(ctx)
	return err
}

// FetchEntry implements provider.EntryFetcher
func (p *Provider) FetchEntry(ctx context.Context, src types.LogSource, id string) (*types.LogEntry, error) {
	if !src.FileMode() {
		return p.rest.FetchEntry(ctx, src, id)
	}
	entries, err := p.entries(ctx, src, 0, true)
	if err != nil {
		return nil, err
	}
	if e := query.Find(entries, id); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", provider.ErrNotFound, id)
}

// Invalidate drops the source's cached collection
func (p *Provider) Invalidate(src types.LogSource) {
	p.loader.Cache().Delete(src.ID)
}
