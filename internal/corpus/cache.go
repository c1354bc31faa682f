// Package corpus maintains an in-memory snapshot of all enabled knowledge
// entries and their precomputed embedding vectors. The snapshot is immutable
// once built and swapped atomically, so concurrent readers always see either
// the fully-old or fully-new corpus, never a partial rebuild.
package corpus

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/reliefworks/kioskhub/internal/domain"
)

// Store is the read side of the backing entry store.
type Store interface {
	// ListEnabledWithEmbeddings returns all enabled entries that have a
	// non-empty stored embedding, in a stable order.
	ListEnabledWithEmbeddings(ctx context.Context) ([]*domain.KnowledgeEntry, error)
}

// Snapshot is one immutable corpus build: a matrix of vectors and a parallel
// list of entry snapshots, same length, same order.
type Snapshot struct {
	Matrix  [][]float32
	Entries []domain.EntrySnapshot
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Entries)
}

// Empty reports whether the snapshot holds no entries.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Entries) == 0
}

// Cache lazily builds and atomically replaces corpus snapshots. Every write
// path that adds, edits, deletes, disables or re-embeds an entry must call
// Invalidate; omitting that call serves stale or phantom entries, which is a
// correctness bug rather than a performance one.
//
// A cold cache may be rebuilt concurrently by multiple requests; the build is
// a pure function of current store state, so last-writer-wins is fine and no
// lock is held.
type Cache struct {
	store    Store
	snapshot atomic.Pointer[Snapshot]
}

// NewCache creates a cache over the given store. The first Load builds the
// snapshot.
func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Load returns the current snapshot, building one from the store if the cache
// is cold or has been invalidated. An empty store yields an empty snapshot,
// not an error.
func (c *Cache) Load(ctx context.Context) (*Snapshot, error) {
	if snap := c.snapshot.Load(); snap != nil {
		return snap, nil
	}

	entries, err := c.store.ListEnabledWithEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	snap := &Snapshot{
		Matrix:  make([][]float32, 0, len(entries)),
		Entries: make([]domain.EntrySnapshot, 0, len(entries)),
	}
	for _, e := range entries {
		if !e.Enabled || len(e.Embedding) == 0 {
			continue
		}
		vec := make([]float32, len(e.Embedding))
		copy(vec, e.Embedding)
		snap.Matrix = append(snap.Matrix, vec)
		snap.Entries = append(snap.Entries, e.Snapshot())
	}

	c.snapshot.Store(snap)
	log.Printf("corpus: loaded %d entries into cache", snap.Len())
	return snap, nil
}

// Invalidate drops the current snapshot so the next Load rebuilds it.
func (c *Cache) Invalidate() {
	c.snapshot.Store(nil)
	log.Println("corpus: cache invalidated")
}

// Cached returns the current snapshot without building, or nil when cold.
// Intended for introspection and tests.
func (c *Cache) Cached() *Snapshot {
	return c.snapshot.Load()
}
