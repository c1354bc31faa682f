// Package shelter holds the cached operational configuration of the site
// (schedules, zones, inventory) and the phrase-trigger inventory matcher that
// answers supply questions without touching the embedding service.
package shelter

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
)

// ConfigStore is the read side of the structured config rows.
type ConfigStore interface {
	// LoadConfig returns the full structured config as a flat key->value map.
	LoadConfig(ctx context.Context) (map[string]any, error)
}

// ConfigSnapshot is one immutable read of the structured config.
type ConfigSnapshot struct {
	Values map[string]any
}

// Get returns the value for key, or nil when absent.
func (s *ConfigSnapshot) Get(key string) any {
	if s == nil {
		return nil
	}
	return s.Values[key]
}

// ConfigCache caches the shelter configuration with the same
// invalidate-on-publish discipline as the corpus cache: snapshots are
// replaced atomically and never mutated in place.
type ConfigCache struct {
	store    ConfigStore
	snapshot atomic.Pointer[ConfigSnapshot]
}

// NewConfigCache creates a config cache over the given store.
func NewConfigCache(store ConfigStore) *ConfigCache {
	return &ConfigCache{store: store}
}

// Load returns the cached snapshot, reading from the store when cold.
func (c *ConfigCache) Load(ctx context.Context) (*ConfigSnapshot, error) {
	if snap := c.snapshot.Load(); snap != nil {
		return snap, nil
	}

	values, err := c.store.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shelter config: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}

	snap := &ConfigSnapshot{Values: values}
	c.snapshot.Store(snap)
	log.Printf("shelter: loaded config (%d keys)", len(values))
	return snap, nil
}

// Invalidate drops the snapshot; called on publish alongside the corpus cache.
func (c *ConfigCache) Invalidate() {
	c.snapshot.Store(nil)
	log.Println("shelter: config cache invalidated")
}
