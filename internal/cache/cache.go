// Package cache memoises source responses for the lifetime of one run, so a
// keyword configured under several categories hits each provider once.
package cache

import (
	"fmt"
	"sync"

	"github.com/deusflow/newsdigest/internal/article"
)

type Cache struct {
	mu    sync.RWMutex
	items map[string][]article.Record
	hits  int
}

// New returns an empty cache. Build one per run and drop it afterwards.
func New() *Cache {
	return &Cache{
		items: make(map[string][]article.Record),
	}
}

// Set stores a copy of records under key.
func (c *Cache) Set(key string, records []article.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = copyRecords(records)
}

// Get returns a copy of the records stored under key, so callers may modify
// the result without affecting later lookups.
func (c *Cache) Get(key string) ([]article.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, exists := c.items[key]
	if !exists {
		return nil, false
	}
	c.hits++
	return copyRecords(records), true
}

// Hits returns how many lookups were served from the cache.
func (c *Cache) Hits() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits
}

// GenerateKey builds the lookup key of one source call.
func (c *Cache) GenerateKey(kind article.SourceKind, keyword string, limit int) string {
	return fmt.Sprintf("%s|%d|%s", kind, limit, keyword)
}

func copyRecords(records []article.Record) []article.Record {
	if records == nil {
		return nil
	}
	out := make([]article.Record, len(records))
	for i, r := range records {
		if r.Published != nil {
			p := *r.Published
			r.Published = &p
		}
		out[i] = r
	}
	return out
}
