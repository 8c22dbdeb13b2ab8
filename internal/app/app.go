// Package app wires the caches, adapters and configuration store together.
// It owns every piece of process-wide state; nothing below it keeps globals.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietdv277/logmux/internal/aws"
	"github.com/vietdv277/logmux/internal/batch"
	"github.com/vietdv277/logmux/internal/cache"
	"github.com/vietdv277/logmux/internal/config"
	"github.com/vietdv277/logmux/internal/filelist"
	"github.com/vietdv277/logmux/internal/httpx"
	"github.com/vietdv277/logmux/internal/merge"
	"github.com/vietdv277/logmux/internal/objstore"
	"github.com/vietdv277/logmux/internal/rest"
	"github.com/vietdv277/logmux/internal/supabase"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// App is the composition root
type App struct {
	Store    *config.Store
	Registry *provider.Registry
	Merge    *merge.Orchestrator
	Entries  *cache.Entries
}

type options struct {
	http    *httpx.Client
	secrets provider.SecretResolver
	entries []cache.EntriesOption
}

// Option customizes New
type Option func(*options)

// WithHTTPClient replaces the shared HTTP client
func WithHTTPClient(c *httpx.Client) Option {
	return func(o *options) {
		o.http = c
	}
}

// WithSecrets replaces the secret resolver
func WithSecrets(r provider.SecretResolver) Option {
	return func(o *options) {
		o.secrets = r
	}
}

// WithEntryCache passes options to the entry cache
func WithEntryCache(opts ...cache.EntriesOption) Option {
	return func(o *options) {
		o.entries = append(o.entries, opts...)
	}
}

// New builds the registry with one provider per source kind
func New(store *config.Store, opts ...Option) *App {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.http == nil {
		o.http = httpx.New()
	}
	if o.secrets == nil {
		o.secrets = aws.NewSecretResolver()
	}

	entries := cache.NewEntries(o.entries...)
	loader := batch.NewLoader(entries)
	restProvider := rest.NewProvider(o.http, o.secrets)

	reg := provider.NewRegistry()
	reg.Register(types.SourceAPI, restProvider)
	reg.Register(types.SourceSupabase, supabase.NewProvider(o.http, o.secrets, cache.NewClients[supabase.Table]()))
	reg.Register(types.SourceSupabaseS3, objstore.NewProvider(loader, cache.NewClients[objstore.Store](), o.secrets))
	reg.Register(types.SourceFile, filelist.NewProvider(restProvider, loader))

	return &App{
		Store:    store,
		Registry: reg,
		Merge:    merge.New(reg),
		Entries:  entries,
	}
}

// Provider returns the adapter for src
func (a *App) Provider(src types.LogSource) (provider.SourceProvider, error) {
	return a.Registry.For(src)
}

// Query runs q across the active sources
func (a *App) Query(ctx context.Context, q types.Query) *types.MergedPage {
	return a.Merge.Fetch(ctx, a.Store.Active(), q)
}

// Entry looks up one entry by id
func (a *App) Entry(ctx context.Context, src types.LogSource, id string) (*types.LogEntry, error) {
	p, err := a.Registry.For(src)
	if err != nil {
		return nil, err
	}
	f, ok := p.(provider.EntryFetcher)
	if !ok {
		return nil, fmt.Errorf("%w: entry lookup for %s", provider.ErrNotSupported, src.Type)
	}
	return f.FetchEntry(ctx, src, id)
}

// TestConnection checks that src is reachable with its credentials
func (a *App) TestConnection(ctx context.Context, src types.LogSource) error {
	p, err := a.Registry.For(src)
	if err != nil {
		return err
	}
	return p.TestConnection(ctx, src)
}

// UpdateSource edits a source and invalidates whatever the adapter cached
// under both its old and new settings.
func (a *App) UpdateSource(ref string, edit func(*types.LogSource)) (types.LogSource, error) {
	before, after, err := a.Store.Update(ref, edit)
	if err != nil {
		return types.LogSource{}, err
	}
	a.Registry.Invalidate(before)
	a.Registry.Invalidate(after)
	slog.Debug("source updated", "source", after.Name, "id", after.ID)
	return after, nil
}

// RemoveSource deletes a source and invalidates its cached state
func (a *App) RemoveSource(ref string) (types.LogSource, error) {
	removed, err := a.Store.Remove(ref)
	if err != nil {
		return types.LogSource{}, err
	}
	a.Registry.Invalidate(removed)
	slog.Debug("source removed", "source", removed.Name, "id", removed.ID)
	return removed, nil
}

// SetEnabled toggles a source and invalidates its cached state
func (a *App) SetEnabled(ref string, enabled bool) (types.LogSource, error) {
	return a.UpdateSource(ref, func(src *types.LogSource) {
		src.Enabled = enabled
	})
}
