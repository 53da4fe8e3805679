package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultCatalogTTL is how long a model listing is reused
const DefaultCatalogTTL = 1 * time.Hour

type catalogEntry struct {
	models    []string
	timestamp time.Time
}

// modelCache stores model listings per endpoint and API key
type modelCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]catalogEntry
	now     func() time.Time
}

func newModelCache(ttl time.Duration) *modelCache {
	return &modelCache{
		ttl:     ttl,
		entries: make(map[string]catalogEntry),
		now:     time.Now,
	}
}

// cacheKey never contains the API key itself
func cacheKey(cfg ProviderConfig) string {
	sum := sha256.Sum256([]byte(cfg.APIKey))
	return cfg.Kind.String() + "|" + cfg.Endpoint() + "|" + hex.EncodeToString(sum[:8])
}

func (c *modelCache) get(key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.timestamp) >= c.ttl {
		return nil, false
	}
	return append([]string(nil), entry.models...), true
}

func (c *modelCache) set(key string, models []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = catalogEntry{
		models:    append([]string(nil), models...),
		timestamp: c.now(),
	}
}

func (c *modelCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]catalogEntry)
}
