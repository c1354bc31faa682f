package service

import (
	"context"
	"errors"
	"testing"

	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestEmbeddingService_GenerateEmbedding(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEntryRepository)
	corpusInv := &countingInvalidator{}
	svc := NewEmbeddingService(client, repo, corpusInv)
	ctx := context.Background()

	entry := &domain.KnowledgeEntry{
		ID:       "entry-1",
		Question: "Where is food served?",
		Answer:   "The cafeteria in building B.",
		Category: "food",
		Tags:     []string{"meals", "schedule"},
	}
	embedding := []float32{0.1, 0.2, 0.3}

	repo.On("GetByID", ctx, "entry-1").Return(entry, nil)
	client.On("EmbedText", ctx, buildEmbeddingText(entry)).Return(embedding, nil)
	repo.On("UpdateEmbedding", ctx, "entry-1", embedding).Return(nil)

	require.NoError(t, svc.GenerateEmbedding(ctx, "entry-1"))
	assert.Equal(t, 1, corpusInv.calls, "a fresh embedding must invalidate the corpus")
	repo.AssertExpectations(t)
}

func TestEmbeddingService_GenerateEmbedding_EntryNotFound(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEntryRepository)
	svc := NewEmbeddingService(client, repo, nil)
	ctx := context.Background()

	repo.On("GetByID", ctx, "missing").Return(nil, domain.ErrEntryNotFound)

	err := svc.GenerateEmbedding(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	client.AssertNotCalled(t, "EmbedText", mock.Anything, mock.Anything)
}

func TestEmbeddingService_GenerateEmbedding_ClientError(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockEntryRepository)
	corpusInv := &countingInvalidator{}
	svc := NewEmbeddingService(client, repo, corpusInv)
	ctx := context.Background()

	repo.On("GetByID", ctx, "entry-1").Return(&domain.KnowledgeEntry{ID: "entry-1", Question: "q", Answer: "a"}, nil)
	client.On("EmbedText", ctx, mock.Anything).Return(nil, errors.New("rate limited"))

	err := svc.GenerateEmbedding(ctx, "entry-1")
	assert.ErrorContains(t, err, "failed to generate embedding")
	repo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, corpusInv.calls)
}

func TestBuildEmbeddingText(t *testing.T) {
	entry := &domain.KnowledgeEntry{
		Question: "Where is food served?",
		Answer:   "Building B.",
		Category: "food",
		Tags:     []string{"meals", "schedule"},
	}

	text := buildEmbeddingText(entry)
	assert.Contains(t, text, "Where is food served?")
	assert.Contains(t, text, "food")
	assert.Contains(t, text, "meals schedule")
	assert.Contains(t, text, "Building B.")
}
