package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (s *fakeObjectStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = body
	return nil
}

func (s *fakeObjectStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	body, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return body, nil
}

func TestSnapshotService_Export(t *testing.T) {
	kb, entryRepo, _, configRepo, _, _ := newKBFixture()
	store := newFakeObjectStore()
	svc := NewSnapshotService(kb, store)

	now := time.Now().UTC()
	entries := []*domain.KnowledgeEntry{
		{ID: "e1", Question: "Where is dinner?", Answer: "Main hall at 6pm.", Category: "food", Tags: []string{"meals"}, CreatedAt: now, UpdatedAt: now},
		{ID: "e2", Question: "Where do I register?", Answer: "Front desk.", Category: "registration", CreatedAt: now, UpdatedAt: now},
	}
	entryRepo.On("ListWithCursor", mock.Anything, mock.Anything, 100).Return(&EntryPageResult{
		Items:   entries,
		HasMore: false,
	}, nil)
	configRepo.On("LoadConfig", mock.Anything).Return(map[string]any{"curfew": "22:00"}, nil)

	count, err := svc.Export(context.Background(), "snapshots/hub-1.json")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(store.objects["snapshots/hub-1.json"], &snapshot))
	require.Len(t, snapshot.Entries, 2)
	assert.Equal(t, "Where is dinner?", snapshot.Entries[0].Question)
	assert.Equal(t, "22:00", snapshot.Config["curfew"])
	assert.False(t, snapshot.ExportedAt.IsZero())
}

func TestSnapshotService_Import(t *testing.T) {
	kb, entryRepo, jobRepo, configRepo, corpusInv, configInv := newKBFixture("entry-1", "job-1")
	store := newFakeObjectStore()
	svc := NewSnapshotService(kb, store)

	snapshot := Snapshot{
		ExportedAt: time.Now().UTC(),
		Entries: []SnapshotEntry{
			{Question: "Where is dinner?", Answer: "Main hall at 6pm.", Category: "food"},
		},
		Config: map[string]any{"curfew": "22:00"},
	}
	body, err := json.Marshal(snapshot)
	require.NoError(t, err)
	store.objects["snapshots/hub-1.json"] = body

	entryRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.KnowledgeEntry) bool {
		return e.Provenance == domain.ProvenanceSync && e.Question == "Where is dinner?"
	})).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	configRepo.On("SaveConfig", mock.Anything, mock.Anything).Return(nil)

	count, err := svc.Import(context.Background(), "snapshots/hub-1.json")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, corpusInv.calls)
	assert.Equal(t, 1, configInv.calls)
	entryRepo.AssertExpectations(t)
	jobRepo.AssertExpectations(t)
	configRepo.AssertExpectations(t)
}

func TestSnapshotService_Import_BadPayload(t *testing.T) {
	kb, _, _, _, _, _ := newKBFixture()
	store := newFakeObjectStore()
	store.objects["snapshots/bad.json"] = []byte("{not json")
	svc := NewSnapshotService(kb, store)

	_, err := svc.Import(context.Background(), "snapshots/bad.json")
	assert.ErrorContains(t, err, "failed to parse snapshot")
}

func TestSnapshotService_Export_StoreError(t *testing.T) {
	kb, entryRepo, _, configRepo, _, _ := newKBFixture()
	store := newFakeObjectStore()
	store.putErr = errors.New("bucket unreachable")
	svc := NewSnapshotService(kb, store)

	entryRepo.On("ListWithCursor", mock.Anything, mock.Anything, 100).Return(&EntryPageResult{}, nil)
	configRepo.On("LoadConfig", mock.Anything).Return(map[string]any{}, nil)

	_, err := svc.Export(context.Background(), "snapshots/hub-1.json")
	assert.ErrorContains(t, err, "bucket unreachable")
}
