package cache

import (
	"crypto/sha256"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Entry represents a cached backend response
type Entry struct {
	Value     any
	Timestamp time.Time
}

// Cache is a TTL cache for backend responses that rarely change
type Cache struct {
	store *gocache.Cache
	ttl   time.Duration
}

// New creates a cache whose entries expire after ttl
func New(ttl time.Duration) *Cache {
	return &Cache{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Get returns the cached entry for key
func (c *Cache) Get(key string) (Entry, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return Entry{}, false
	}
	entry, ok := v.(Entry)
	return entry, ok
}

// Set stores value under key with the default TTL
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, Entry{Value: value, Timestamp: time.Now()}, gocache.DefaultExpiration)
}

// Delete drops key
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Flush drops every entry
func (c *Cache) Flush() {
	c.store.Flush()
}

// Key generates a cache key from request parts
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
