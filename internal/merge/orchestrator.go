// Package merge fans one query out to every selected source concurrently and
// folds the per-source pages into a single globally sorted page.
package merge

import (
	"context"
	"log/slog"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/vietdv277/logmux/internal/query"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// Orchestrator dispatches queries through a provider registry
type Orchestrator struct {
	registry *provider.Registry
}

// New creates an Orchestrator
func New(registry *provider.Registry) *Orchestrator {
	return &Orchestrator{registry: registry}
}

type outcome struct {
	page *types.PagedResult
	err  error
}

// Fetch returns one merged page across sources. Each source returns its own
// page for q, so page N of the merged view holds the union of every source's
// page N, re-sorted. A failing source never fails the call; it is reported
// in MergedPage.Errors.
func (o *Orchestrator) Fetch(ctx context.Context, sources []types.LogSource, q types.Query) *types.MergedPage {
	q = q.Normalize()
	merged := &types.MergedPage{
		Content: []types.LogEntry{},
		Page:    q.Page,
		Size:    q.Size,
		Errors:  []types.SourceError{},
	}
	if len(sources) == 0 {
		return merged
	}

	outcomes := make([]outcome, len(sources))
	p := pool.New()
	for i, src := range sources {
		p.Go(func() {
			outcomes[i] = o.fetchOne(ctx, src, q)
		})
	}
	p.Wait()

	for i, out := range outcomes {
		src := sources[i]
		if out.err != nil {
			slog.WarnContext(ctx, "source query failed", "source", src.Name, "type", src.Type, "error", out.err)
			merged.Errors = append(merged.Errors, types.SourceError{
				SourceID:   src.ID,
				SourceName: src.Name,
				Message:    out.err.Error(),
			})
			continue
		}
		for _, e := range out.page.Content {
			e.SourceID = src.ID
			e.SourceName = src.Name
			e.SourceColor = src.Color
			merged.Content = append(merged.Content, e)
		}
		merged.TotalElements += out.page.TotalElements
	}

	query.SortEntries(merged.Content, q.Sort)
	merged.TotalPages = types.TotalPages(merged.TotalElements, q.Size)
	return merged
}

func (o *Orchestrator) fetchOne(ctx context.Context, src types.LogSource, q types.Query) outcome {
	prov, err := o.registry.For(src)
	if err != nil {
		return outcome{err: err}
	}
	page, err := prov.FetchPage(ctx, src, q)
	if err != nil {
		return outcome{err: err}
	}
	if page == nil {
		page = &types.PagedResult{}
	}
	return outcome{page: page}
}

// SourceStats is the stats outcome for one source
type SourceStats struct {
	Source types.LogSource
	Stats  *types.Stats
	Err    error
}

// Stats fetches statistics from every source concurrently. Results keep
// the order of sources; a failure is reported on its own entry.
func (o *Orchestrator) Stats(ctx context.Context, sources []types.LogSource, q types.StatsQuery) []SourceStats {
	out := make([]SourceStats, len(sources))

	p := pool.New()
	for i, src := range sources {
		p.Go(func() {
			out[i].Source = src
			prov, err := o.registry.For(src)
			if err != nil {
				out[i].Err = err
				return
			}
			out[i].Stats, out[i].Err = prov.FetchStats(ctx, src, q)
			if out[i].Err != nil {
				slog.Warn("stats fetch failed", "source", src.Name, "error", out[i].Err)
			}
		})
	}
	p.Wait()
	return out
}

// AppNames returns the sorted union of every source's application names
func (o *Orchestrator) AppNames(ctx context.Context, sources []types.LogSource) ([]string, []types.SourceError) {
	names := make([][]string, len(sources))
	errs := make([]error, len(sources))

	p := pool.New()
	for i, src := range sources {
		p.Go(func() {
			prov, err := o.registry.For(src)
			if err != nil {
				errs[i] = err
				return
			}
			names[i], errs[i] = prov.FetchAppNames(ctx, src)
		})
	}
	p.Wait()

	seen := make(map[string]struct{})
	out := []string{}
	failures := []types.SourceError{}
	for i, src := range sources {
		if errs[i] != nil {
			failures = append(failures, types.SourceError{SourceID: src.ID, SourceName: src.Name, Message: errs[i].Error()})
			continue
		}
		for _, n := range names[i] {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out, failures
}
