package cache

import (
	"fmt"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// Clients caches connection objects keyed by a credentials tuple so adapters
// do not reconnect on every call. Entries never expire; they are dropped
// explicitly when the owning source is edited or removed.
type Clients[T any] struct {
	items *gocache.Cache
}

// NewClients creates an empty client cache
func NewClients[T any]() *Clients[T] {
	return &Clients[T]{items: gocache.New(gocache.NoExpiration, 0)}
}

// Key joins the parts of a credentials tuple into a cache key
func Key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Get returns the client stored under key
func (c *Clients[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	client, ok := v.(T)
	if !ok {
		return zero, false
	}
	return client, true
}

// GetOrCreate returns the client under key, building and storing it with
// create on a miss. Two concurrent misses may both call create; the last
// write wins.
func (c *Clients[T]) GetOrCreate(key string, create func() (T, error)) (T, error) {
	if client, ok := c.Get(key); ok {
		return client, nil
	}
	client, err := create()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to create client: %w", err)
	}
	c.items.Set(key, client, gocache.NoExpiration)
	return client, nil
}

// Delete drops the client under key
func (c *Clients[T]) Delete(key string) {
	c.items.Delete(key)
}

// Len returns the number of cached clients
func (c *Clients[T]) Len() int {
	return c.items.ItemCount()
}
