package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingAPI is a mock for the embedding API
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func makeEmbedding(dim int, seed float32) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = seed + float32(i)*0.001
	}
	return out
}

func TestClient_EmbedText_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	text := "where is food served"
	expected := makeEmbedding(1536, 0.1)

	mockAPI.On("CreateEmbeddings", ctx, []string{text}).Return([][]float32{expected}, nil)

	embedding, err := client.EmbedText(ctx, text)

	assert.NoError(t, err)
	assert.Equal(t, expected, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedText_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.EmbedText(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_EmbedText_APIError(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	apiErr := errors.New("connection refused")

	mockAPI.On("CreateEmbeddings", ctx, []string{"test"}).Return(nil, apiErr)

	embedding, err := client.EmbedText(ctx, "test")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Contains(t, err.Error(), "failed to create embeddings")
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedTexts_PreservesOrder(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{api: mockAPI, dimensions: 4}

	ctx := context.Background()
	texts := []string{"hello", "goodbye"}
	first := []float32{1, 0, 0, 0}
	second := []float32{0, 1, 0, 0}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return([][]float32{first, second}, nil)

	embeddings, err := client.EmbedTexts(ctx, texts)

	assert.NoError(t, err)
	assert.Equal(t, [][]float32{first, second}, embeddings)
}

func TestClient_EmbedTexts_WrongDimensions(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"test"}).Return([][]float32{{1, 2, 3}}, nil)

	embeddings, err := client.EmbedTexts(ctx, []string{"test"})

	assert.Nil(t, embeddings)
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_EmbedTexts_RejectsEmptyBatchMember(t *testing.T) {
	client := NewClient("key")

	_, err := client.EmbedTexts(context.Background(), []string{"ok", ""})
	assert.Equal(t, ErrEmptyText, err)

	_, err = client.EmbedTexts(context.Background(), nil)
	assert.Equal(t, ErrEmptyText, err)
}
