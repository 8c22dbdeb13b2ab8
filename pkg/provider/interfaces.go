package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietdv277/logmux/pkg/types"
)

// Common errors
var (
	ErrNotSupported       = errors.New("feature not supported by this source")
	ErrNotFound           = errors.New("log entry not found")
	ErrNotConfigured      = errors.New("source not configured")
	ErrUnknownSourceType  = errors.New("unknown source type")
	ErrInvalidSource      = errors.New("invalid source")
	ErrFileListingFailure = errors.New("failed to list batch files")
)

// SourceProvider is the capability contract every source kind implements.
// Inputs and outputs are uniform so callers can treat adapters polymorphically.
type SourceProvider interface {
	// FetchPage returns one page of entries matching the query
	FetchPage(ctx context.Context, src types.LogSource, q types.Query) (*types.PagedResult, error)

	// FetchStats returns aggregate statistics, optionally bounded in time
	FetchStats(ctx context.Context, src types.LogSource, q types.StatsQuery) (*types.Stats, error)

	// FetchAppNames returns the sorted distinct non-null application names
	FetchAppNames(ctx context.Context, src types.LogSource) ([]string, error)

	// TestConnection issues the cheapest real request the source supports
	TestConnection(ctx context.Context, src types.LogSource) error
}

// EntryFetcher is implemented by providers that can look up a single entry
type EntryFetcher interface {
	FetchEntry(ctx context.Context, src types.LogSource, id string) (*types.LogEntry, error)
}

// Invalidator is implemented by providers that hold per-source state
// (entry collections, connection clients) which must be dropped when the
// source configuration changes.
type Invalidator interface {
	Invalidate(src types.LogSource)
}

// Registry is the dispatch table from source type tag to provider
type Registry struct {
	providers map[types.SourceType]SourceProvider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[types.SourceType]SourceProvider)}
}

// Register binds a provider to a source type, replacing any previous binding
func (r *Registry) Register(t types.SourceType, p SourceProvider) {
	r.providers[t] = p
}

// For returns the provider responsible for src
func (r *Registry) For(src types.LogSource) (SourceProvider, error) {
	p, ok := r.providers[src.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q (source: %s)", ErrUnknownSourceType, src.Type, src.Name)
	}
	return p, nil
}

// Invalidate forwards to the source's provider when it holds state
func (r *Registry) Invalidate(src types.LogSource) {
	p, ok := r.providers[src.Type]
	if !ok {
		return
	}
	if inv, ok := p.(Invalidator); ok {
		inv.Invalidate(src)
	}
}

// SecretResolver expands credential fields that reference an external
// secret store. Values that are not references are returned unchanged.
type SecretResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// LiteralSecrets is a SecretResolver that never expands anything
type LiteralSecrets struct{}

// Resolve returns value unchanged
func (LiteralSecrets) Resolve(_ context.Context, value string) (string, error) {
	return value, nil
}
