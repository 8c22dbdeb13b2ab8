// Package batch loads the full entry collection of a file-backed source:
// list candidate files, download and parse them concurrently, merge the
// results and cache them per source.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"github.com/vietdv277/logmux/internal/cache"
	"github.com/vietdv277/logmux/internal/logfile"
	"github.com/vietdv277/logmux/internal/query"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// DefaultConcurrency bounds parallel file downloads per load
const DefaultConcurrency = 8

// Fetcher lists and downloads the batch files of one source
type Fetcher interface {
	ListFiles(ctx context.Context) ([]types.FileInfo, error)
	ReadFile(ctx context.Context, file types.FileInfo) ([]byte, error)
}

// Request identifies one load
type Request struct {
	SourceID string
	Tick     int64
	Format   string // configured encoding, empty accepts both
	MaxFiles int
}

// Loader materializes and caches entry collections
type Loader struct {
	cache       *cache.Entries
	group       singleflight.Group
	concurrency int
}

// NewLoader creates a Loader backed by c
func NewLoader(c *cache.Entries) *Loader {
	return &Loader{cache: c, concurrency: DefaultConcurrency}
}

// Cache returns the entry cache the loader writes to
func (l *Loader) Cache() *cache.Entries {
	return l.cache
}

// Load returns the source's full collection, newest first. Files that fail
// to download are skipped; only a listing failure is an error. Concurrent
// loads of the same source and tick share one fetch.
func (l *Loader) Load(ctx context.Context, req Request, f Fetcher) ([]types.LogEntry, error) {
	if entries, ok := l.cache.Get(req.SourceID, req.Tick); ok {
		slog.DebugContext(ctx, "entry cache hit", "source", req.SourceID, "tick", req.Tick, "entries", len(entries))
		return entries, nil
	}

	key := req.SourceID + "@" + strconv.FormatInt(req.Tick, 10)
	v, err, _ := l.group.Do(key, func() (any, error) {
		entries, err := l.reload(ctx, req, f)
		if err != nil {
			return nil, err
		}
		l.cache.Set(req.SourceID, req.Tick, entries)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.LogEntry), nil
}

// LoadCurrent loads with the tick of the most recent load when it is newer
// than req.Tick. Stats and app-name lookups use it to read whatever the last
// page query fetched.
func (l *Loader) LoadCurrent(ctx context.Context, req Request, f Fetcher) ([]types.LogEntry, error) {
	if _, tick, ok := l.cache.Latest(req.SourceID); ok && tick > req.Tick {
		req.Tick = tick
	}
	return l.Load(ctx, req, f)
}

func (l *Loader) reload(ctx context.Context, req Request, f Fetcher) ([]types.LogEntry, error) {
	files, err := f.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrFileListingFailure, err)
	}

	selected := SelectFiles(files, req.Format, req.MaxFiles)
	slog.DebugContext(ctx, "loading batch files", "source", req.SourceID, "listed", len(files), "selected", len(selected))

	results := make([][]types.LogEntry, len(selected))
	p := pool.New().WithMaxGoroutines(l.concurrency)
	for i, file := range selected {
		p.Go(func() {
			data, err := f.ReadFile(ctx, file)
			if err != nil {
				slog.DebugContext(ctx, "skipping batch file", "source", req.SourceID, "file", file.Path, "error", err)
				return
			}
			results[i] = logfile.Parse(data, file.Name, req.Format)
		})
	}
	p.Wait()

	var entries []types.LogEntry
	for _, r := range results {
		entries = append(entries, r...)
	}
	query.SortEntries(entries, types.DefaultSort)
	return entries, nil
}

// SelectFiles keeps recognised log files, orders them by name descending
// (names embed a sortable timestamp, so this is newest first) and takes the
// first maxFiles.
func SelectFiles(files []types.FileInfo, format string, maxFiles int) []types.FileInfo {
	var out []types.FileInfo
	for _, f := range files {
		if logfile.IsLogFile(f.Name, format) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name > out[j].Name
		}
		return out[i].Path > out[j].Path
	})
	if maxFiles > 0 && len(out) > maxFiles {
		out = out[:maxFiles]
	}
	return out
}
