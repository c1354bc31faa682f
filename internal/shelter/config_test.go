package shelter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConfigStore struct {
	mu     sync.Mutex
	values map[string]any
	calls  int
	err    error
}

func (f *fakeConfigStore) LoadConfig(ctx context.Context) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.values, nil
}

func TestConfigCacheLoadAndInvalidate(t *testing.T) {
	store := &fakeConfigStore{values: map[string]any{"food_schedule": "7 am, 12 noon, 6 pm"}}
	cache := NewConfigCache(store)

	snap, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7 am, 12 noon, 6 pm", snap.Get("food_schedule"))

	_, err = cache.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls, "second load is served from cache")

	store.mu.Lock()
	store.values = map[string]any{"food_schedule": "8 am only"}
	store.mu.Unlock()
	cache.Invalidate()

	snap, err = cache.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8 am only", snap.Get("food_schedule"))
	assert.Equal(t, 2, store.calls)
}

func TestConfigCacheNilValues(t *testing.T) {
	cache := NewConfigCache(&fakeConfigStore{})

	snap, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Values)
	assert.Nil(t, snap.Get("missing"))
}

func TestConfigCacheStoreError(t *testing.T) {
	cache := NewConfigCache(&fakeConfigStore{err: errors.New("db down")})

	_, err := cache.Load(context.Background())
	assert.ErrorContains(t, err, "failed to load shelter config")
}

func TestConfigSnapshotNilReceiver(t *testing.T) {
	var snap *ConfigSnapshot
	assert.Nil(t, snap.Get("anything"))
}
