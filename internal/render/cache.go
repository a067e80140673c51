package render

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes assembled documents keyed by the deck's modification
// signature plus the document variant. The base design re-parses and
// re-renders on every request; the cache is an optimization that must be
// purged on the same filesystem event that drives client reload.
type Cache struct {
	docs *lru.Cache[string, string]
}

// NewCache creates a cache holding up to size documents.
func NewCache(size int) (*Cache, error) {
	docs, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cache{docs: docs}, nil
}

// Get returns the cached document for key, if present.
func (c *Cache) Get(key string) (string, bool) {
	return c.docs.Get(key)
}

// Add stores a document under key.
func (c *Cache) Add(key, doc string) {
	c.docs.Add(key, doc)
}

// Purge drops every cached document. Called on every watch event.
func (c *Cache) Purge() {
	c.docs.Purge()
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	return c.docs.Len()
}
