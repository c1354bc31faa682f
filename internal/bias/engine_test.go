package bias

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngineStore is an in-memory EngineStore.
type fakeEngineStore struct {
	biases   map[string]float64
	entryIDs []string
	counts   map[string]FeedbackCounts
}

func newFakeEngineStore() *fakeEngineStore {
	return &fakeEngineStore{
		biases: map[string]float64{},
		counts: map[string]FeedbackCounts{},
	}
}

func (f *fakeEngineStore) ListBiases(ctx context.Context) ([]*domain.EntryBias, error) {
	var out []*domain.EntryBias
	for id, b := range f.biases {
		out = append(out, &domain.EntryBias{EntryID: id, Bias: b})
	}
	return out, nil
}

func (f *fakeEngineStore) ListEntryIDs(ctx context.Context) ([]string, error) {
	return f.entryIDs, nil
}

func (f *fakeEngineStore) FeedbackCounts(ctx context.Context) (map[string]FeedbackCounts, error) {
	return f.counts, nil
}

func (f *fakeEngineStore) UpsertBias(ctx context.Context, entryID string, bias float64) error {
	f.biases[entryID] = bias
	return nil
}

func (f *fakeEngineStore) DeleteBiasesExcept(ctx context.Context, keep []string) error {
	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	for id := range f.biases {
		if !keepSet[id] {
			delete(f.biases, id)
		}
	}
	return nil
}

func newTestEngine(t *testing.T, store EngineStore) *Engine {
	t.Helper()
	return NewEngine(store, EngineConfig{LockDir: t.TempDir()})
}

func TestRebuild_FreshLogOdds(t *testing.T) {
	store := newFakeEngineStore()
	store.entryIDs = []string{"a"}
	store.counts["a"] = FeedbackCounts{Positive: 5, Negative: 1}

	engine := newTestEngine(t, store)
	require.NoError(t, engine.Rebuild(context.Background()))

	// decay*0 + (1-decay)*ln(6/2)
	want := 0.1 * math.Log(3)
	assert.InDelta(t, want, store.biases["a"], 1e-9)
}

func TestRebuild_DecayBelowMinEvents(t *testing.T) {
	store := newFakeEngineStore()
	store.entryIDs = []string{"a"}
	store.biases["a"] = 0.5
	store.counts["a"] = FeedbackCounts{Positive: 1, Negative: 1}

	engine := newTestEngine(t, store)
	require.NoError(t, engine.Rebuild(context.Background()))

	assert.InDelta(t, 0.45, store.biases["a"], 1e-9)
}

func TestRebuild_BlendsWithPrevious(t *testing.T) {
	store := newFakeEngineStore()
	store.entryIDs = []string{"a"}
	store.biases["a"] = -0.4
	store.counts["a"] = FeedbackCounts{Positive: 9, Negative: 0}

	engine := newTestEngine(t, store)
	require.NoError(t, engine.Rebuild(context.Background()))

	want := 0.9*(-0.4) + 0.1*math.Log(10)
	assert.InDelta(t, want, store.biases["a"], 1e-9)
}

func TestRebuild_ClampsToUnitInterval(t *testing.T) {
	store := newFakeEngineStore()
	store.entryIDs = []string{"pos", "neg"}
	store.biases["pos"] = 1.0
	store.biases["neg"] = -1.0
	store.counts["pos"] = FeedbackCounts{Positive: 100000, Negative: 0}
	store.counts["neg"] = FeedbackCounts{Positive: 0, Negative: 100000}

	engine := newTestEngine(t, store)
	require.NoError(t, engine.Rebuild(context.Background()))

	assert.LessOrEqual(t, store.biases["pos"], 1.0)
	assert.GreaterOrEqual(t, store.biases["neg"], -1.0)
}

func TestRebuild_PrunesOrphans(t *testing.T) {
	store := newFakeEngineStore()
	store.entryIDs = []string{"kept"}
	store.biases["kept"] = 0.2
	store.biases["deleted-entry"] = 0.8

	engine := newTestEngine(t, store)
	require.NoError(t, engine.Rebuild(context.Background()))

	_, exists := store.biases["deleted-entry"]
	assert.False(t, exists)
	assert.Contains(t, store.biases, "kept")
}

func TestRebuild_LockHeldExitsImmediately(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, lockFileName), []byte("12345"), 0o644))

	engine := NewEngine(newFakeEngineStore(), EngineConfig{LockDir: dir})
	err := engine.Rebuild(context.Background())
	assert.ErrorIs(t, err, domain.ErrBiasRebuildLocked)
}

func TestRebuild_ReleasesLock(t *testing.T) {
	dir := t.TempDir()
	store := newFakeEngineStore()
	store.entryIDs = []string{"a"}

	engine := NewEngine(store, EngineConfig{LockDir: dir})
	require.NoError(t, engine.Rebuild(context.Background()))

	_, err := os.Stat(filepath.Join(dir, lockFileName))
	assert.True(t, os.IsNotExist(err), "lock must be released on success")

	// Lock is free again: a second rebuild must run.
	require.NoError(t, engine.Rebuild(context.Background()))
}

func TestProviderTTL(t *testing.T) {
	store := &countingReadStore{rows: []*domain.EntryBias{{EntryID: "a", Bias: 0.3}}}
	provider := NewProvider(store, time.Minute)

	now := time.Unix(1000, 0)
	provider.now = func() time.Time { return now }

	biases, err := provider.Biases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.3, biases["a"])
	assert.Equal(t, 1, store.calls)

	// Within TTL: cached.
	now = now.Add(30 * time.Second)
	_, err = provider.Biases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)

	// Past TTL: refreshed.
	now = now.Add(45 * time.Second)
	store.rows = []*domain.EntryBias{{EntryID: "a", Bias: -0.2}}
	biases, err = provider.Biases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
	assert.Equal(t, -0.2, biases["a"])
}

func TestProviderServesStaleOnRefreshError(t *testing.T) {
	store := &countingReadStore{rows: []*domain.EntryBias{{EntryID: "a", Bias: 0.3}}}
	provider := NewProvider(store, time.Nanosecond)

	biases, err := provider.Biases(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0.3, biases["a"])

	store.err = assert.AnError
	time.Sleep(time.Millisecond)

	biases, err = provider.Biases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.3, biases["a"])
}

type countingReadStore struct {
	rows  []*domain.EntryBias
	calls int
	err   error
}

func (c *countingReadStore) ListBiases(ctx context.Context) ([]*domain.EntryBias, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.rows, nil
}
