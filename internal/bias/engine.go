package bias

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/reliefworks/kioskhub/internal/domain"
)

const (
	// DefaultMinEvents is the minimum feedback volume before a fresh
	// log-odds estimate replaces decay-toward-zero.
	DefaultMinEvents = 3
	// DefaultDecayFactor is the EMA weight given to the previous bias.
	DefaultDecayFactor = 0.9
)

// FeedbackCounts aggregates lifetime feedback for one entry.
type FeedbackCounts struct {
	Positive int
	Negative int
}

// EngineStore is everything the rebuild needs from the backing store.
type EngineStore interface {
	ListBiases(ctx context.Context) ([]*domain.EntryBias, error)
	ListEntryIDs(ctx context.Context) ([]string, error)
	FeedbackCounts(ctx context.Context) (map[string]FeedbackCounts, error)
	UpsertBias(ctx context.Context, entryID string, bias float64) error
	DeleteBiasesExcept(ctx context.Context, keepEntryIDs []string) error
}

// Engine is the offline batch job that recomputes per-entry bias from the
// feedback log. It runs as its own process or cron-style invocation, never
// inside query serving, and requires an exclusive file lock because its
// read-modify-write aggregation is not safely interleavable with itself.
type Engine struct {
	store     EngineStore
	lockDir   string
	minEvents int
	decay     float64
}

// EngineConfig tunes the rebuild.
type EngineConfig struct {
	LockDir     string
	MinEvents   int
	DecayFactor float64
}

// NewEngine creates a rebuild engine. Zero-valued config fields fall back to
// defaults; LockDir defaults to the working directory.
func NewEngine(store EngineStore, cfg EngineConfig) *Engine {
	minEvents := cfg.MinEvents
	if minEvents <= 0 {
		minEvents = DefaultMinEvents
	}
	decay := cfg.DecayFactor
	if decay <= 0 || decay >= 1 {
		decay = DefaultDecayFactor
	}
	lockDir := cfg.LockDir
	if lockDir == "" {
		lockDir = "."
	}
	return &Engine{
		store:     store,
		lockDir:   lockDir,
		minEvents: minEvents,
		decay:     decay,
	}
}

// Rebuild recomputes every entry's bias and prunes rows for entries that no
// longer exist. It exits immediately with ErrBiasRebuildLocked when another
// rebuild holds the lock, and always releases the lock on exit.
func (e *Engine) Rebuild(ctx context.Context) error {
	lock, acquired, err := acquireLock(e.lockDir)
	if err != nil {
		return err
	}
	if !acquired {
		log.Println("bias: another rebuild is already running; exiting")
		return domain.ErrBiasRebuildLocked
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			log.Printf("bias: failed to release lock: %v", releaseErr)
		}
	}()

	return e.rebuild(ctx)
}

func (e *Engine) rebuild(ctx context.Context) error {
	existing, err := e.store.ListBiases(ctx)
	if err != nil {
		return fmt.Errorf("failed to list biases: %w", err)
	}
	prevBias := make(map[string]float64, len(existing))
	for _, row := range existing {
		prevBias[row.EntryID] = row.Bias
	}

	counts, err := e.store.FeedbackCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to aggregate feedback: %w", err)
	}

	entryIDs, err := e.store.ListEntryIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	// Recompute for every entry that has feedback or a previous bias.
	targets := make(map[string]bool, len(prevBias)+len(counts))
	for id := range prevBias {
		targets[id] = true
	}
	for id := range counts {
		targets[id] = true
	}

	updated := 0
	for id := range targets {
		bias := e.compute(prevBias[id], counts[id])
		if err := e.store.UpsertBias(ctx, id, bias); err != nil {
			return fmt.Errorf("failed to upsert bias for %s: %w", id, err)
		}
		updated++
	}

	if len(entryIDs) > 0 {
		if err := e.store.DeleteBiasesExcept(ctx, entryIDs); err != nil {
			return fmt.Errorf("failed to prune orphan biases: %w", err)
		}
	}

	log.Printf("bias: rebuild complete (%d entries updated)", updated)
	return nil
}

// compute blends the previous bias with a fresh log-odds estimate. Entries
// with too little feedback decay toward zero instead. The result is always in
// [-1, 1].
func (e *Engine) compute(prev float64, counts FeedbackCounts) float64 {
	n := counts.Positive + counts.Negative

	var combined float64
	if n < e.minEvents {
		combined = e.decay * prev
	} else {
		raw := math.Log((float64(counts.Positive) + 1) / (float64(counts.Negative) + 1))
		combined = e.decay*prev + (1-e.decay)*raw
	}

	return clamp(combined, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
