package service

import (
	"context"
	"log"
	"time"

	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/retrieval"
	"github.com/reliefworks/kioskhub/internal/telemetry"
)

// Retriever runs the gating pipeline for one query.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) *domain.GatingResult
}

// QueryRewriter is the guarded query-cleanup retry.
type QueryRewriter interface {
	ShouldRewrite(result *domain.GatingResult, query string) bool
	Rewrite(ctx context.Context, query string) string
}

// QueryService orchestrates retrieval, the single rewrite retry, query
// logging and feedback recording for kiosk requests.
type QueryService struct {
	retriever    Retriever
	rewriter     QueryRewriter
	queryLogRepo QueryLogRepository
	feedbackRepo FeedbackRepositoryInterface
	uuidGen      UUIDGenerator
}

// NewQueryService creates a new QueryService instance. rewriter,
// queryLogRepo and feedbackRepo may be nil to disable the corresponding
// behavior.
func NewQueryService(
	retriever Retriever,
	rewriter QueryRewriter,
	queryLogRepo QueryLogRepository,
	feedbackRepo FeedbackRepositoryInterface,
) *QueryService {
	return &QueryService{
		retriever:    retriever,
		rewriter:     rewriter,
		queryLogRepo: queryLogRepo,
		feedbackRepo: feedbackRepo,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// AskInput represents one kiosk question.
type AskInput struct {
	KioskID   string
	SessionID string
	Query     string
	Language  string
	// SelectedCategory is set when the user answered a clarification prompt;
	// it implies a retry.
	SelectedCategory string
	ExcludeIDs       []string
}

// AskOutput is the gating result plus the query log ID the kiosk needs to
// attribute later feedback.
type AskOutput struct {
	Result         *domain.GatingResult
	QueryLogID     string
	RewriteApplied bool
}

// Ask runs the pipeline for one question, retrying once with a rewritten
// query when the first pass lands low-confidence with an unresolved intent.
// Logging failures are never surfaced to the kiosk.
func (s *QueryService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Ask", telemetry.SpanAttributes{
		KioskID:   input.KioskID,
		Operation: "ask",
	})
	defer span.End()

	started := time.Now()
	isRetry := input.SelectedCategory != ""

	result := s.retriever.Retrieve(ctx, retrieval.Request{
		Query:            input.Query,
		IsRetry:          isRetry,
		SelectedCategory: input.SelectedCategory,
		ExcludeIDs:       input.ExcludeIDs,
		Language:         input.Language,
	})

	rewriteApplied := false
	if s.rewriter != nil && s.rewriter.ShouldRewrite(result, input.Query) {
		rewritten := s.rewriter.Rewrite(ctx, input.Query)
		if rewritten != input.Query {
			rewriteApplied = true
			result = s.retriever.Retrieve(ctx, retrieval.Request{
				Query:      rewritten,
				IsRetry:    true,
				ExcludeIDs: input.ExcludeIDs,
				Language:   input.Language,
			})
		}
	}

	logID := s.logQuery(ctx, input, result, rewriteApplied, isRetry, time.Since(started))

	return &AskOutput{
		Result:         result,
		QueryLogID:     logID,
		RewriteApplied: rewriteApplied,
	}, nil
}

// FeedbackInput represents one explicit thumbs-up/down on an answer.
type FeedbackInput struct {
	EntryID   string
	KioskID   string
	SessionID string
	Label     domain.FeedbackLabel
}

// RecordFeedback stores a feedback event for the bias engine's next rebuild.
func (s *QueryService) RecordFeedback(ctx context.Context, input FeedbackInput) error {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.RecordFeedback", telemetry.SpanAttributes{
		KioskID:   input.KioskID,
		EntryID:   input.EntryID,
		Operation: "feedback",
	})
	defer span.End()

	if s.feedbackRepo == nil {
		return domain.NewDomainError(domain.ErrCodeInvalidOperation, "feedback recording is not configured")
	}
	if input.EntryID == "" {
		return domain.ErrMissingRequiredField
	}
	if input.Label != domain.FeedbackPositive && input.Label != domain.FeedbackNegative {
		return domain.ErrInvalidFeedbackLabel
	}

	return s.feedbackRepo.Create(ctx, &domain.FeedbackEvent{
		ID:        s.uuidGen.NewString(),
		EntryID:   input.EntryID,
		KioskID:   input.KioskID,
		SessionID: input.SessionID,
		Label:     input.Label,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *QueryService) logQuery(ctx context.Context, input AskInput, result *domain.GatingResult, rewriteApplied, isRetry bool, elapsed time.Duration) string {
	if s.queryLogRepo == nil {
		return ""
	}

	id, err := s.queryLogRepo.CreateQueryLog(ctx, QueryLogEntry{
		KioskID:          input.KioskID,
		SessionID:        input.SessionID,
		Query:            input.Query,
		Language:         input.Language,
		AnswerType:       string(result.Type),
		Confidence:       result.Confidence,
		Intent:           result.Intent,
		IntentConfidence: result.IntentConfidence,
		EntryID:          result.EntryID,
		RawBestEntryID:   result.RawBestEntryID,
		RawBestScore:     result.RawBestScore,
		BiasApplied:      result.BiasApplied,
		RewriteApplied:   rewriteApplied,
		IsRetry:          isRetry,
		DurationMs:       int(elapsed.Milliseconds()),
	})
	if err != nil {
		log.Printf("query: failed to write query log: %v", err)
		return ""
	}
	return id
}
