// Package cache keeps resolved build configurations for the lifetime of the
// process.
package cache

import (
	"sort"
	"sync"

	"github.com/eugenenazirov/buildenv/internal/buildcfg"
)

// MemoryCache keeps configurations in-memory and guards access with a RWMutex.
// Entries are never invalidated.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]buildcfg.BuildConfig
}

var _ buildcfg.Cache = (*MemoryCache)(nil)

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]buildcfg.BuildConfig),
	}
}

// Get returns a defensive copy of the configuration cached under name.
func (c *MemoryCache) Get(name string) (buildcfg.BuildConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cfg, ok := c.entries[name]
	if !ok {
		return buildcfg.BuildConfig{}, false
	}
	return cfg.Clone(), true
}

// LoadOrStore caches a copy of cfg under name unless an entry already exists,
// and returns a copy of whichever entry is cached.
func (c *MemoryCache) LoadOrStore(name string, cfg buildcfg.BuildConfig) (buildcfg.BuildConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[name]; ok {
		return existing.Clone(), true
	}
	stored := cfg.Clone()
	c.entries[name] = stored
	return stored.Clone(), false
}

// Names returns the cached configuration names in sorted order.
func (c *MemoryCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of cached configurations.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
