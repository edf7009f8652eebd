// Package resultcache keeps one completed search result set per
// (query type, chat) key so pagination, summary and share views never
// re-fetch. Never persisted; a process restart starts cold.
package resultcache

import (
	"sync"

	"birdbot/internal/domain"
)

type key struct {
	queryType domain.QueryType
	chatID    int64
}

// Cache stores cached result sets. Each of the four query types is an
// independent key, so up to four live sets per chat.
type Cache struct {
	mu   sync.RWMutex
	sets map[key]domain.CachedResultSet
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{sets: make(map[key]domain.CachedResultSet)}
}

// Put replaces the cached set for the result's (query type, chat) key.
func (c *Cache) Put(set domain.CachedResultSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[key{set.QueryType, set.ChatID}] = set
}

// Get returns the cached set for a (query type, chat) key, if any.
func (c *Cache) Get(queryType domain.QueryType, chatID int64) (domain.CachedResultSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.sets[key{queryType, chatID}]
	return set, ok
}

// Delete removes the cached set for a (query type, chat) key.
func (c *Cache) Delete(queryType domain.QueryType, chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, key{queryType, chatID})
}
