// Package cache holds listing pages and bucket metadata for one backend
// instance.
//
// Pages are keyed by (bucket, prefix, cursor). Mutations evict every page of
// the affected prefixes rather than patching them. A Cache is never shared
// between backends; switching accounts builds a new one.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

// Key identifies one cached listing page.
type Key struct {
	Bucket string
	Prefix string
	Cursor string
}

type pageEntry struct {
	page    provider.Page
	storeAt time.Time
}

type bucketsEntry struct {
	buckets []provider.Bucket
	storeAt time.Time
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
	Pages     int
}

// Cache is safe for concurrent use.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pages   map[Key]pageEntry
	buckets *bucketsEntry
	stats   Stats
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty cache. A zero ttl keeps entries until invalidated.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:   ttl,
		now:   time.Now,
		pages: make(map[Key]pageEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured expiry (zero when disabled).
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) expired(storeAt time.Time) bool {
	return c.ttl > 0 && c.now().Sub(storeAt) >= c.ttl
}

// Page returns a copy of the cached page for k.
func (c *Cache) Page(k Key) (*provider.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.pages[k]
	if ok && c.expired(e.storeAt) {
		delete(c.pages, k)
		c.stats.Evictions++
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return clonePage(&e.page), true
}

// PutPage stores a copy of page under k.
func (c *Cache) PutPage(k Key, page *provider.Page) {
	if page == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[k] = pageEntry{page: *clonePage(page), storeAt: c.now()}
}

// InvalidatePrefix evicts every page of (bucket, prefix) regardless of
// cursor and returns the number of pages removed.
func (c *Cache) InvalidatePrefix(bucket, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evict(func(k Key) bool { return k.Bucket == bucket && k.Prefix == prefix })
}

// InvalidateObject evicts the listings a mutation of key can change: the
// key's own prefix and each ancestor (a new key may create intermediate
// directories). A directory key also evicts every listing beneath it.
func (c *Cache) InvalidateObject(bucket, key string) int {
	affected := map[string]bool{}
	for p := provider.PrefixOf(key); ; p = provider.ParentPrefix(p) {
		affected[p] = true
		if p == "" {
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evict(func(k Key) bool {
		if k.Bucket != bucket {
			return false
		}
		if affected[k.Prefix] {
			return true
		}
		return strings.HasSuffix(key, "/") && strings.HasPrefix(k.Prefix, key)
	})
}

// InvalidateBucket evicts every page of bucket.
func (c *Cache) InvalidateBucket(bucket string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evict(func(k Key) bool { return k.Bucket == bucket })
}

func (c *Cache) evict(match func(Key) bool) int {
	n := 0
	for k := range c.pages {
		if match(k) {
			delete(c.pages, k)
			n++
		}
	}
	c.stats.Evictions += n
	return n
}

// Buckets returns the cached bucket list.
func (c *Cache) Buckets() ([]provider.Bucket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buckets == nil || c.expired(c.buckets.storeAt) {
		c.buckets = nil
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return append([]provider.Bucket(nil), c.buckets.buckets...), true
}

// PutBuckets stores a copy of the bucket list.
func (c *Cache) PutBuckets(buckets []provider.Bucket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets = &bucketsEntry{
		buckets: append([]provider.Bucket(nil), buckets...),
		storeAt: c.now(),
	}
}

// InvalidateBuckets drops the cached bucket list.
func (c *Cache) InvalidateBuckets() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets = nil
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Evictions += len(c.pages)
	c.pages = make(map[Key]pageEntry)
	c.buckets = nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Pages = len(c.pages)
	return s
}

func clonePage(p *provider.Page) *provider.Page {
	return &provider.Page{
		Items:      append([]provider.Object(nil), p.Items...),
		NextCursor: p.NextCursor,
	}
}
