package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/reliefworks/kioskhub/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingEntryRepository defines the repository interface for embedding
// operations
type EmbeddingEntryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService generates and stores entry embeddings. It is driven by the
// background worker, never by the query path.
type EmbeddingService struct {
	client      EmbeddingClient
	repo        EmbeddingEntryRepository
	corpusCache Invalidator
}

// NewEmbeddingService creates a new EmbeddingService instance. corpusCache
// may be nil when no cache needs invalidation (tests, one-off backfills).
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingEntryRepository, corpusCache Invalidator) *EmbeddingService {
	return &EmbeddingService{
		client:      client,
		repo:        repo,
		corpusCache: corpusCache,
	}
}

// GenerateEmbedding generates and stores an embedding for the given entry ID,
// then invalidates the corpus so the entry becomes matchable.
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, entryID string) error {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return err
	}

	embedding, err := s.client.EmbedText(ctx, buildEmbeddingText(entry))
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repo.UpdateEmbedding(ctx, entryID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	if s.corpusCache != nil {
		s.corpusCache.Invalidate()
	}
	return nil
}

// buildEmbeddingText combines the fields a query is matched against. The
// question carries most of the signal; tags broaden recall.
func buildEmbeddingText(e *domain.KnowledgeEntry) string {
	var parts []string

	if e.Question != "" {
		parts = append(parts, e.Question)
	}
	if e.Category != "" {
		parts = append(parts, e.Category)
	}
	if len(e.Tags) > 0 {
		parts = append(parts, strings.Join(e.Tags, " "))
	}
	if e.Answer != "" {
		parts = append(parts, e.Answer)
	}

	return strings.Join(parts, "\n\n")
}
