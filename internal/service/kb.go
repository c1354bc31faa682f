package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/pagination"
	"github.com/reliefworks/kioskhub/internal/telemetry"
)

// EntryRepositoryInterface defines the repository interface for knowledge
// entry persistence
type EntryRepositoryInterface interface {
	Create(ctx context.Context, e *domain.KnowledgeEntry) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*EntryPageResult, error)
	Update(ctx context.Context, e *domain.KnowledgeEntry) error
	Delete(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

type EntryPageResult struct {
	Items      []*domain.KnowledgeEntry
	NextCursor string
	HasMore    bool
}

// EmbeddingJobRepositoryInterface defines the repository interface for
// embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// ShelterConfigRepositoryInterface defines the repository interface for the
// structured shelter configuration
type ShelterConfigRepositoryInterface interface {
	LoadConfig(ctx context.Context) (map[string]any, error)
	SaveConfig(ctx context.Context, values map[string]any) error
}

// Invalidator is a cache whose snapshot must be dropped after a write.
type Invalidator interface {
	Invalidate()
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// KBService handles business logic for knowledge entries and the shelter
// configuration. Every write invalidates the corpus cache synchronously,
// before returning to the caller; skipping that would serve stale or phantom
// entries to the next query.
type KBService struct {
	entryRepo   EntryRepositoryInterface
	jobRepo     EmbeddingJobRepositoryInterface
	configRepo  ShelterConfigRepositoryInterface
	corpusCache Invalidator
	configCache Invalidator
	uuidGen     UUIDGenerator
	txRunner    TxRunner
}

// NewKBService creates a new KBService instance.
func NewKBService(
	entryRepo EntryRepositoryInterface,
	jobRepo EmbeddingJobRepositoryInterface,
	configRepo ShelterConfigRepositoryInterface,
	corpusCache Invalidator,
	configCache Invalidator,
) *KBService {
	return &KBService{
		entryRepo:   entryRepo,
		jobRepo:     jobRepo,
		configRepo:  configRepo,
		corpusCache: corpusCache,
		configCache: configCache,
		uuidGen:     &DefaultUUIDGenerator{},
	}
}

// NewKBServiceWithUUIDGen creates a KBService with a custom UUID generator
// (for testing).
func NewKBServiceWithUUIDGen(
	entryRepo EntryRepositoryInterface,
	jobRepo EmbeddingJobRepositoryInterface,
	configRepo ShelterConfigRepositoryInterface,
	corpusCache Invalidator,
	configCache Invalidator,
	uuidGen UUIDGenerator,
) *KBService {
	s := NewKBService(entryRepo, jobRepo, configRepo, corpusCache, configCache)
	s.uuidGen = uuidGen
	return s
}

// WithTxRunner makes entry writes and their embedding-job enqueue atomic.
// Without a runner the two inserts are sequential; a crash between them
// leaves an entry that only a backfill will ever embed.
func (s *KBService) WithTxRunner(runner TxRunner) *KBService {
	s.txRunner = runner
	return s
}

// CreateEntryInput represents the input for creating a knowledge entry
type CreateEntryInput struct {
	Question   string
	Answer     string
	Category   string
	Tags       []string
	Provenance domain.EntryProvenance
}

// UpdateEntryInput represents the input for updating a knowledge entry
type UpdateEntryInput struct {
	EntryID  string
	Question string
	Answer   string
	Category string
	Tags     []string
}

type ListEntriesInput struct {
	Cursor string
	Limit  int
}

type ListEntriesOutput struct {
	Items   []*domain.KnowledgeEntry
	Cursor  string
	HasMore bool
}

// CreateEntry creates a new entry without an embedding and queues an
// embedding job for the background worker.
func (s *KBService) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KBService.CreateEntry", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	provenance := input.Provenance
	if provenance == "" {
		provenance = domain.ProvenanceManual
	}

	entry := domain.NewKnowledgeEntry(
		s.uuidGen.NewString(),
		input.Question, input.Answer, input.Category,
		input.Tags, provenance, now, now,
	)
	if err := domain.ValidateKnowledgeEntry(entry); err != nil {
		return nil, err
	}

	err := s.persistEntryAndJob(ctx, entry.ID, now, func(entries EntryRepositoryInterface) error {
		return entries.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.corpusCache.Invalidate()
	return entry, nil
}

// GetEntry retrieves an entry by ID
func (s *KBService) GetEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KBService.GetEntry", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "get",
	})
	defer span.End()

	return s.entryRepo.GetByID(ctx, id)
}

// UpdateEntry rewrites an entry's content, clears its now-stale embedding by
// queueing a fresh job, and invalidates the corpus.
func (s *KBService) UpdateEntry(ctx context.Context, input UpdateEntryInput) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KBService.UpdateEntry", telemetry.SpanAttributes{
		EntryID:   input.EntryID,
		Operation: "update",
	})
	defer span.End()

	entry, err := s.entryRepo.GetByID(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.Question = input.Question
	entry.Answer = input.Answer
	entry.Category = input.Category
	entry.Tags = input.Tags
	entry.UpdatedAt = now

	if err := domain.ValidateKnowledgeEntry(entry); err != nil {
		return nil, err
	}
	err = s.persistEntryAndJob(ctx, entry.ID, now, func(entries EntryRepositoryInterface) error {
		return entries.Update(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.corpusCache.Invalidate()
	return entry, nil
}

// SetEntryEnabled flips an entry's enabled flag. Disabled entries drop out of
// matching on the next query.
func (s *KBService) SetEntryEnabled(ctx context.Context, id string, enabled bool) error {
	ctx, span := telemetry.StartSpan(ctx, "KBService.SetEntryEnabled", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "set_enabled",
	})
	defer span.End()

	if err := s.entryRepo.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}
	s.corpusCache.Invalidate()
	return nil
}

// DeleteEntry removes an entry permanently.
func (s *KBService) DeleteEntry(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "KBService.DeleteEntry", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "delete",
	})
	defer span.End()

	if err := s.entryRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.corpusCache.Invalidate()
	return nil
}

// ListEntries pages through all entries, enabled or not.
func (s *KBService) ListEntries(ctx context.Context, input ListEntriesInput) (*ListEntriesOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "KBService.ListEntries", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.entryRepo.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListEntriesOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// PublishConfig replaces the shelter configuration and invalidates its cache
// so kiosks see the new schedules and inventory on the next query.
func (s *KBService) PublishConfig(ctx context.Context, values map[string]any) error {
	ctx, span := telemetry.StartSpan(ctx, "KBService.PublishConfig", telemetry.SpanAttributes{
		Operation: "publish_config",
	})
	defer span.End()

	if err := s.configRepo.SaveConfig(ctx, values); err != nil {
		return err
	}
	s.configCache.Invalidate()
	return nil
}

// GetConfig reads the current shelter configuration from the store.
func (s *KBService) GetConfig(ctx context.Context) (map[string]any, error) {
	return s.configRepo.LoadConfig(ctx)
}

// persistEntryAndJob runs the entry write and the embedding-job enqueue in one
// transaction when a TxRunner is configured, falling back to sequential writes
// otherwise.
func (s *KBService) persistEntryAndJob(ctx context.Context, entryID string, now time.Time, write func(entries EntryRepositoryInterface) error) error {
	if s.txRunner == nil {
		if err := write(s.entryRepo); err != nil {
			return err
		}
		return s.queueEmbeddingJob(ctx, s.jobRepo, entryID, now)
	}

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := write(repos.Entries()); err != nil {
			return err
		}
		return s.queueEmbeddingJob(ctx, repos.EmbeddingJobs(), entryID, now)
	})
}

func (s *KBService) queueEmbeddingJob(ctx context.Context, jobs EmbeddingJobRepositoryInterface, entryID string, now time.Time) error {
	return jobs.Create(ctx, &domain.EmbeddingJob{
		ID:        s.uuidGen.NewString(),
		EntryID:   entryID,
		Status:    domain.EmbeddingJobStatusPending,
		CreatedAt: now,
	})
}
