// Package cache holds the process-wide state shared by the file-backed and
// database-backed adapters: parsed entry collections keyed by source id and
// connection clients keyed by credentials.
package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/vietdv277/logmux/pkg/types"
)

// DefaultTTL is how long a parsed entry collection stays valid
const DefaultTTL = 30 * time.Second

type entrySet struct {
	entries   []types.LogEntry
	tick      int64
	fetchedAt time.Time
}

// Entries caches parsed entry collections per source id. A cached
// collection is served only when its tick equals the requested tick and it
// is younger than the TTL.
type Entries struct {
	items *ttlcache.Cache[string, entrySet]
	ttl   time.Duration
	now   func() time.Time
}

// EntriesOption customizes an Entries cache
type EntriesOption func(*Entries)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) EntriesOption {
	return func(e *Entries) {
		e.ttl = ttl
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) EntriesOption {
	return func(e *Entries) {
		e.now = now
	}
}

// NewEntries creates an entry cache
func NewEntries(opts ...EntriesOption) *Entries {
	e := &Entries{
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	// ttlcache only reclaims memory; validity is decided against e.now so a
	// fake clock drives expiry in tests.
	e.items = ttlcache.New[string, entrySet](
		ttlcache.WithTTL[string, entrySet](e.ttl),
		ttlcache.WithDisableTouchOnHit[string, entrySet](),
	)
	return e
}

// Get returns the cached collection for sourceID when it is still valid for tick
func (e *Entries) Get(sourceID string, tick int64) ([]types.LogEntry, bool) {
	item := e.items.Get(sourceID)
	if item == nil {
		return nil, false
	}
	set := item.Value()
	if set.tick != tick || e.now().Sub(set.fetchedAt) >= e.ttl {
		return nil, false
	}
	return set.entries, true
}

// Latest returns the most recently stored collection regardless of tick or
// age, along with the tick it was loaded for.
func (e *Entries) Latest(sourceID string) ([]types.LogEntry, int64, bool) {
	item := e.items.Get(sourceID)
	if item == nil {
		return nil, 0, false
	}
	set := item.Value()
	return set.entries, set.tick, true
}

// Set replaces the slot for sourceID, stamped with the current time
func (e *Entries) Set(sourceID string, tick int64, entries []types.LogEntry) {
	e.items.Set(sourceID, entrySet{
		entries:   entries,
		tick:      tick,
		fetchedAt: e.now(),
	}, ttlcache.DefaultTTL)
}

// Delete evicts the collection for sourceID
func (e *Entries) Delete(sourceID string) {
	e.items.Delete(sourceID)
}

// Len returns the number of cached collections
func (e *Entries) Len() int {
	return e.items.Len()
}
