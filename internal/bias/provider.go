// Package bias owns the feedback-derived per-entry re-ranking signal: an
// offline batch engine that recomputes it from the feedback log, and a
// TTL-cached read-side provider consumed by the gating engine.
package bias

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reliefworks/kioskhub/internal/domain"
)

// DefaultTTL is how long a loaded bias map is served before refresh.
// Bias tolerates staleness, so time-based refresh replaces invalidation.
const DefaultTTL = 1800 * time.Second

// ReadStore is the read side of the bias table.
type ReadStore interface {
	ListBiases(ctx context.Context) ([]*domain.EntryBias, error)
}

// Provider serves the current bias map with a time-to-live cache.
// Safe for concurrent use.
type Provider struct {
	store ReadStore
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	biases   map[string]float64
	loadedAt time.Time
}

// NewProvider creates a provider with the given TTL; ttl <= 0 uses DefaultTTL.
func NewProvider(store ReadStore, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{store: store, ttl: ttl, now: time.Now}
}

// Biases returns the entry-id -> bias map, refreshing from the store when the
// TTL has elapsed. When a refresh fails but a previous map exists, the stale
// map is served rather than an error.
func (p *Provider) Biases(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.biases != nil && p.now().Sub(p.loadedAt) < p.ttl {
		return p.biases, nil
	}

	rows, err := p.store.ListBiases(ctx)
	if err != nil {
		if p.biases != nil {
			return p.biases, nil
		}
		return nil, fmt.Errorf("failed to load entry biases: %w", err)
	}

	biases := make(map[string]float64, len(rows))
	for _, row := range rows {
		biases[row.EntryID] = row.Bias
	}

	p.biases = biases
	p.loadedAt = p.now()
	return biases, nil
}
