// Package objstore implements the "supabase-s3" source kind: batch log files
// in an S3-compatible bucket, loaded in full through the batch loader and
// filtered, sorted and paged in memory.
package objstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vietdv277/logmux/internal/aws"
	"github.com/vietdv277/logmux/internal/batch"
	"github.com/vietdv277/logmux/internal/cache"
	"github.com/vietdv277/logmux/internal/httpx"
	"github.com/vietdv277/logmux/internal/query"
	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

// Store is a listable, downloadable blob store
type Store interface {
	List(ctx context.Context, prefix string) ([]types.FileInfo, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Probe(ctx context.Context, prefix string) error
}

// Provider reads batch files from object storage
type Provider struct {
	loader  *batch.Loader
	clients *cache.Clients[Store]
	secrets provider.SecretResolver
	open    func(ctx context.Context, src types.LogSource) (Store, error)
}

// NewProvider creates an object-storage provider
func NewProvider(loader *batch.Loader, clients *cache.Clients[Store], secrets provider.SecretResolver) *Provider {
	if secrets == nil {
		secrets = provider.LiteralSecrets{}
	}
	if clients == nil {
		clients = cache.NewClients[Store]()
	}
	p := &Provider{loader: loader, clients: clients, secrets: secrets}
	p.open = p.connect
	return p
}

// ProjectRef returns the first label of the project URL's host, which the
// storage gateway expects as access key id.
func ProjectRef(projectURL string) string {
	u, err := url.Parse(projectURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	ref, _, _ := strings.Cut(u.Hostname(), ".")
	return ref
}

// Endpoint returns the S3-compatible endpoint of a project
func Endpoint(projectURL string) string {
	return httpx.JoinURL(projectURL, "storage", "v1", "s3")
}

func accessKeyID(src types.LogSource) string {
	if src.AccessKeyID != "" {
		return src.AccessKeyID
	}
	return ProjectRef(src.ProjectURL)
}

func clientKey(src types.LogSource) string {
	return cache.Key(src.ProjectURL, accessKeyID(src), src.AccessKey, src.Region, src.Bucket)
}

func (p *Provider) store(ctx context.Context, src types.LogSource) (Store, error) {
	return p.clients.GetOrCreate(clientKey(src), func() (Store, error) {
		return p.open(ctx, src)
	})
}

func (p *Provider) connect(ctx context.Context, src types.LogSource) (Store, error) {
	if src.ProjectURL == "" || src.AccessKey == "" || src.Bucket == "" {
		return nil, fmt.Errorf("%w: %s needs a project URL, access key and bucket", provider.ErrNotConfigured, src.Name)
	}
	secret, err := p.secrets.Resolve(ctx, src.AccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access key: %w", err)
	}
	client, err := aws.NewS3Client(ctx, aws.S3Options{
		Endpoint:        Endpoint(src.ProjectURL),
		Region:          src.Region,
		AccessKeyID:     accessKeyID(src),
		SecretAccessKey: secret,
	})
	if err != nil {
		return nil, err
	}
	return aws.NewBlobStore(client, src.Bucket), nil
}

type fetcher struct {
	store  Store
	prefix string
}

func (f fetcher) ListFiles(ctx context.Context) ([]types.FileInfo, error) {
	return f.store.List(ctx, f.prefix)
}

func (f fetcher) ReadFile(ctx context.Context, file types.FileInfo) ([]byte, error) {
	return f.store.Download(ctx, file.Path)
}

func (p *Provider) entries(ctx context.Context, src types.LogSource, tick int64, current bool) ([]types.LogEntry, error) {
	s, err := p.store(ctx, src)
	if err != nil {
		return nil, err
	}
	req := batch.Request{
		SourceID: src.ID,
		Tick:     tick,
		Format:   src.FileFormat,
		MaxFiles: src.FileLimit(),
	}
	f := fetcher{store: s, prefix: src.Prefix}
	if current {
		return p.loader.LoadCurrent(ctx, req, f)
	}
	return p.loader.Load(ctx, req, f)
}

// FetchPage implements provider.SourceProvider
func (p *Provider) FetchPage(ctx context.Context, src types.LogSource, q types.Query) (*types.PagedResult, error) {
	entries, err := p.entries(ctx, src, q.Tick, false)
	if err != nil {
		return nil, err
	}
	return query.FilterAndPage(entries, q), nil
}

// FetchStats aggregates the cached collection within the requested range
func (p *Provider) FetchStats(ctx context.Context, src types.LogSource, q types.StatsQuery) (*types.Stats, error) {
	entries, err := p.entries(ctx, src, q.Tick, true)
	if err != nil {
		return nil, err
	}
	return query.Aggregate(query.InRange(entries, q.Range)), nil
}

// FetchAppNames implements provider.SourceProvider
func (p *Provider) FetchAppNames(ctx context.Context, src types.LogSource) ([]string, error) {
	entries, err := p.entries(ctx, src, 0, true)
	if err != nil {
		return nil, err
	}
	return query.AppNames(entries), nil
}

// TestConnection lists a single object under the prefix
func (p *Provider) TestConnection(ctx context.Context, src types.LogSource) error {
	s, err := p.store(ctx, src)
	if err != nil {
		return err
	}
	return s.Probe(ctx, src.Prefix)
}

// FetchEntry searches the cached collection
func (p *Provider) FetchEntry(ctx context.Context, src types.LogSource, id string) (*types.LogEntry, error) {
	entries, err := p.entries(ctx, src, 0, true)
	if err != nil {
		return nil, err
	}
	if e := query.Find(entries, id); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", provider.ErrNotFound, id)
}

// Invalidate drops the source's entry collection and storage client
func (p *Provider) Invalidate(src types.LogSource) {
	p.loader.Cache().Delete(src.ID)
	p.clients.Delete(clientKey(src))
}
