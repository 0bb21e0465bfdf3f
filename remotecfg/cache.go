// Package remotecfg provides remotely managed configuration with a
// read-through, time-bounded cache.
//
// Information Hiding:
// - Refresh schedule and staleness policy hidden from callers
// - Document fetch transport hidden behind Fetcher
package remotecfg

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/carelinq/datachat/internal/log"
)

// ErrNotFound indicates the requested configuration key is absent.
var ErrNotFound = errors.New("configuration not found")

// DefaultTTL bounds how long a fetched document is served before a
// lazy refresh on the next read.
const DefaultTTL = time.Hour

// Value is one configuration entry: a raw string, or a decoded object
// when the entry is declared as JSON.
type Value struct {
	String string
	Object map[string]any
}

// Field returns a string field from a JSON-typed value.
func (v Value) Field(name string) (string, bool) {
	s, ok := v.Object[name].(string)
	return s, ok
}

// Fetcher retrieves the full configuration document, flattened to
// "group:key" entries.
type Fetcher interface {
	Fetch(ctx context.Context) (map[string]Value, error)
}

// Cache serves configuration values, refreshing lazily after the TTL
// elapses. A refresh failure falls back to the last good snapshot when
// one exists, so readers may briefly see stale values.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logger  log.Logger

	mu        sync.Mutex
	values    map[string]Value
	lastFetch time.Time
}

// NewCache creates a cache over the fetcher. A non-positive ttl uses
// DefaultTTL.
func NewCache(fetcher Fetcher, ttl time.Duration, logger log.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Lookup returns the value for (group, key), refreshing the document
// first if the cached snapshot has expired. Returns ErrNotFound when
// the key is absent from the current snapshot, or when no snapshot
// could ever be fetched.
func (c *Cache) Lookup(ctx context.Context, group, key string) (Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.values == nil || c.now().Sub(c.lastFetch) > c.ttl {
		values, err := c.fetcher.Fetch(ctx)
		if err != nil {
			if c.values == nil {
				return Value{}, ErrNotFound
			}
			// Serve the last good snapshot; retry on the next read.
			c.logger.Warn("remote config refresh failed, serving cached snapshot", "error", err)
		} else {
			c.values = values
			c.lastFetch = c.now()
		}
	}

	value, ok := c.values[group+":"+key]
	if !ok {
		return Value{}, ErrNotFound
	}
	return value, nil
}
