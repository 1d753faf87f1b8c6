package comic

import (
	"strconv"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheEntries  = 64
	defaultCacheMaxBytes = 128 * 1024 * 1024
)

// CacheStats tracks basic cache counters. Evictions counts pages dropped to
// stay within the limits; Purge and closing a Book are not evictions.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type pageKey struct {
	book  uint64
	index int
}

func (k pageKey) String() string {
	return strconv.FormatUint(k.book, 10) + "/" + strconv.Itoa(k.index)
}

// PageCache is a bounded LRU of decoded-page input bytes. It is an explicit
// object owned by the caller and handed to books with WithPageCache; there is
// no process-wide cache. A PageCache is safe for concurrent use.
//
// Byte slices returned through a cache are shared and must not be modified.
type PageCache struct {
	mu       sync.Mutex
	entries  *lru.Cache[pageKey, []byte]
	maxBytes int64
	flight   singleflight.Group

	totalBytes atomic.Int64
	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
}

// NewPageCache creates a cache holding at most maxEntries pages and roughly
// maxBytes of page data. Non-positive limits select the defaults
// (64 pages, 128 MB).
func NewPageCache(maxEntries int, maxBytes int64) *PageCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	if maxBytes <= 0 {
		maxBytes = defaultCacheMaxBytes
	}
	c := &PageCache{maxBytes: maxBytes}
	c.entries, _ = lru.NewWithEvict[pageKey, []byte](maxEntries, c.onEvicted)
	return c
}

// load returns the cached bytes for key or calls fn once, even when several
// goroutines ask for the same page at the same time.
func (c *PageCache) load(key pageKey, fn func() ([]byte, error)) ([]byte, error) {
	if data, ok := c.get(key); ok {
		return data, nil
	}
	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		if data, ok := c.peek(key); ok {
			return data, nil
		}
		data, err := fn()
		if err != nil {
			return nil, err
		}
		c.put(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *PageCache) get(key pageKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return data, true
}

func (c *PageCache) peek(key pageKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Peek(key)
}

func (c *PageCache) put(key pageKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Pages larger than the whole budget are served but not kept.
	if int64(len(data)) > c.maxBytes {
		return
	}
	if _, exists := c.entries.Peek(key); exists {
		c.entries.Remove(key)
	}
	c.totalBytes.Add(int64(len(data)))
	if c.entries.Add(key, data) {
		c.evictions.Add(1)
	}

	for c.totalBytes.Load() > c.maxBytes && c.entries.Len() > 0 {
		if _, _, ok := c.entries.RemoveOldest(); ok {
			c.evictions.Add(1)
		}
	}
}

// forget drops every page of one book.
func (c *PageCache) forget(book uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range c.entries.Keys() {
		if k.book == book {
			c.entries.Remove(k)
		}
	}
}

// Len returns the number of cached pages.
func (c *PageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// TotalBytes returns the size of all cached pages.
func (c *PageCache) TotalBytes() int64 {
	return c.totalBytes.Load()
}

// Stats returns cache statistics snapshot.
func (c *PageCache) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Purge removes all cached pages.
func (c *PageCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// onEvicted runs for every removal, explicit or not, and keeps the byte
// total in step. Evictions are counted by put.
func (c *PageCache) onEvicted(_ pageKey, data []byte) {
	c.totalBytes.Add(-int64(len(data)))
}
