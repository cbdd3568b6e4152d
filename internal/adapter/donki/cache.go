package donki

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/space-weather-analysis/internal/domain"
	"github.com/couchcryptid/space-weather-analysis/internal/observability"
)

// CachedFetcher wraps an EventFetcher with an in-memory LRU cache keyed by
// kind and date range. Entries expire after the configured TTL so a
// long-running server eventually re-reads ranges that DONKI may backfill.
type CachedFetcher struct {
	inner   domain.EventFetcher
	cache   *lruCache
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner domain.EventFetcher, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchCME(ctx context.Context, start, end time.Time) ([]json.RawMessage, error) {
	return c.fetch(ctx, domain.KindCME, start, end, c.inner.FetchCME)
}

func (c *CachedFetcher) FetchGST(ctx context.Context, start, end time.Time) ([]json.RawMessage, error) {
	return c.fetch(ctx, domain.KindGST, start, end, c.inner.FetchGST)
}

func (c *CachedFetcher) fetch(
	ctx context.Context,
	kind domain.EventKind,
	start, end time.Time,
	inner func(context.Context, time.Time, time.Time) ([]json.RawMessage, error),
) ([]json.RawMessage, error) {
	key := fmt.Sprintf("%s:%s:%s", kind, start.Format(dateLayout), end.Format(dateLayout))
	if events, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues(string(kind), "hit").Inc()
		return events, nil
	}
	c.metrics.CacheLookups.WithLabelValues(string(kind), "miss").Inc()

	events, err := inner(ctx, start, end)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, events, time.Now().Add(c.ttl))
	return events, nil
}

// lruCache is a simple thread-safe LRU cache with per-entry expiry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     []json.RawMessage
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, e.key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []json.RawMessage, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
