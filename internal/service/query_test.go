package service

import (
	"context"
	"testing"

	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/intent"
	"github.com/reliefworks/kioskhub/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRetriever is a mock implementation of Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Retrieve(ctx context.Context, req retrieval.Request) *domain.GatingResult {
	args := m.Called(ctx, req)
	return args.Get(0).(*domain.GatingResult)
}

// MockRewriter is a mock implementation of QueryRewriter
type MockRewriter struct {
	mock.Mock
}

func (m *MockRewriter) ShouldRewrite(result *domain.GatingResult, query string) bool {
	args := m.Called(result, query)
	return args.Bool(0)
}

func (m *MockRewriter) Rewrite(ctx context.Context, query string) string {
	args := m.Called(ctx, query)
	return args.String(0)
}

// MockQueryLogRepository is a mock implementation of QueryLogRepository
type MockQueryLogRepository struct {
	mock.Mock
}

func (m *MockQueryLogRepository) CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

// MockFeedbackRepository is a mock implementation of FeedbackRepositoryInterface
type MockFeedbackRepository struct {
	mock.Mock
}

func (m *MockFeedbackRepository) Create(ctx context.Context, event *domain.FeedbackEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func directResult(entryID string, confidence float64) *domain.GatingResult {
	return &domain.GatingResult{
		Type:       domain.AnswerDirectMatch,
		AnswerText: "answer",
		Confidence: confidence,
		EntryID:    entryID,
		Intent:     "food",
	}
}

func TestQueryService_Ask(t *testing.T) {
	retriever := new(MockRetriever)
	rewriter := new(MockRewriter)
	logRepo := new(MockQueryLogRepository)
	svc := NewQueryService(retriever, rewriter, logRepo, nil)
	ctx := context.Background()

	result := directResult("entry-1", 0.8)
	retriever.On("Retrieve", ctx, mock.MatchedBy(func(req retrieval.Request) bool {
		return req.Query == "where is food" && !req.IsRetry
	})).Return(result)
	rewriter.On("ShouldRewrite", result, "where is food").Return(false)
	logRepo.On("CreateQueryLog", ctx, mock.MatchedBy(func(e QueryLogEntry) bool {
		return e.AnswerType == "DIRECT_MATCH" && e.EntryID == "entry-1" && !e.RewriteApplied
	})).Return("log-1", nil)

	out, err := svc.Ask(ctx, AskInput{KioskID: "kiosk-1", Query: "where is food", Language: "en"})

	require.NoError(t, err)
	assert.Equal(t, result, out.Result)
	assert.Equal(t, "log-1", out.QueryLogID)
	assert.False(t, out.RewriteApplied)
	retriever.AssertNumberOfCalls(t, "Retrieve", 1)
}

func TestQueryService_Ask_RewriteRetry(t *testing.T) {
	retriever := new(MockRetriever)
	rewriter := new(MockRewriter)
	logRepo := new(MockQueryLogRepository)
	svc := NewQueryService(retriever, rewriter, logRepo, nil)
	ctx := context.Background()

	original := "um so like where do I uh get the food thing"
	lowConfidence := &domain.GatingResult{
		Type:       domain.AnswerNoMatch,
		Confidence: 0.2,
		Intent:     intent.Unclear,
	}

	retriever.On("Retrieve", ctx, mock.MatchedBy(func(req retrieval.Request) bool {
		return req.Query == original && !req.IsRetry
	})).Return(lowConfidence).Once()
	rewriter.On("ShouldRewrite", lowConfidence, original).Return(true)
	rewriter.On("Rewrite", ctx, original).Return("where is the food line")

	retried := directResult("entry-1", 0.7)
	retriever.On("Retrieve", ctx, mock.MatchedBy(func(req retrieval.Request) bool {
		return req.Query == "where is the food line" && req.IsRetry
	})).Return(retried).Once()

	logRepo.On("CreateQueryLog", ctx, mock.MatchedBy(func(e QueryLogEntry) bool {
		return e.RewriteApplied && e.AnswerType == "DIRECT_MATCH"
	})).Return("log-2", nil)

	out, err := svc.Ask(ctx, AskInput{Query: original})

	require.NoError(t, err)
	assert.True(t, out.RewriteApplied)
	assert.Equal(t, retried, out.Result)
	retriever.AssertNumberOfCalls(t, "Retrieve", 2)
}

func TestQueryService_Ask_RewriteKeepsOriginalSkipsRetry(t *testing.T) {
	retriever := new(MockRetriever)
	rewriter := new(MockRewriter)
	svc := NewQueryService(retriever, rewriter, nil, nil)
	ctx := context.Background()

	original := "um where do I go now please"
	lowConfidence := &domain.GatingResult{Type: domain.AnswerNoMatch, Confidence: 0.2, Intent: intent.Unclear}

	retriever.On("Retrieve", ctx, mock.Anything).Return(lowConfidence)
	rewriter.On("ShouldRewrite", lowConfidence, original).Return(true)
	// Transform failed upstream: the rewriter hands back the original.
	rewriter.On("Rewrite", ctx, original).Return(original)

	out, err := svc.Ask(ctx, AskInput{Query: original})

	require.NoError(t, err)
	assert.False(t, out.RewriteApplied)
	retriever.AssertNumberOfCalls(t, "Retrieve", 1)
}

func TestQueryService_Ask_SelectedCategoryImpliesRetry(t *testing.T) {
	retriever := new(MockRetriever)
	svc := NewQueryService(retriever, nil, nil, nil)
	ctx := context.Background()

	retriever.On("Retrieve", ctx, mock.MatchedBy(func(req retrieval.Request) bool {
		return req.IsRetry && req.SelectedCategory == "medical"
	})).Return(directResult("entry-1", 0.7))

	out, err := svc.Ask(ctx, AskInput{Query: "where do I go", SelectedCategory: "medical"})

	require.NoError(t, err)
	assert.Equal(t, "entry-1", out.Result.EntryID)
}

func TestQueryService_Ask_LogFailureIsSwallowed(t *testing.T) {
	retriever := new(MockRetriever)
	logRepo := new(MockQueryLogRepository)
	svc := NewQueryService(retriever, nil, logRepo, nil)
	ctx := context.Background()

	retriever.On("Retrieve", ctx, mock.Anything).Return(directResult("entry-1", 0.8))
	logRepo.On("CreateQueryLog", ctx, mock.Anything).Return("", assert.AnError)

	out, err := svc.Ask(ctx, AskInput{Query: "where is food"})

	require.NoError(t, err)
	assert.Empty(t, out.QueryLogID)
}

func TestQueryService_RecordFeedback(t *testing.T) {
	feedbackRepo := new(MockFeedbackRepository)
	svc := NewQueryService(new(MockRetriever), nil, nil, feedbackRepo)
	svc.uuidGen = NewMockUUIDGenerator("feedback-1")
	ctx := context.Background()

	feedbackRepo.On("Create", ctx, mock.MatchedBy(func(e *domain.FeedbackEvent) bool {
		return e.ID == "feedback-1" && e.EntryID == "entry-1" && e.Label == domain.FeedbackPositive
	})).Return(nil)

	err := svc.RecordFeedback(ctx, FeedbackInput{
		EntryID: "entry-1",
		KioskID: "kiosk-1",
		Label:   domain.FeedbackPositive,
	})

	require.NoError(t, err)
	feedbackRepo.AssertExpectations(t)
}

func TestQueryService_RecordFeedback_Validation(t *testing.T) {
	feedbackRepo := new(MockFeedbackRepository)
	svc := NewQueryService(new(MockRetriever), nil, nil, feedbackRepo)
	ctx := context.Background()

	t.Run("missing entry id", func(t *testing.T) {
		err := svc.RecordFeedback(ctx, FeedbackInput{Label: domain.FeedbackPositive})
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("bad label", func(t *testing.T) {
		err := svc.RecordFeedback(ctx, FeedbackInput{EntryID: "entry-1", Label: 0})
		assert.ErrorIs(t, err, domain.ErrInvalidFeedbackLabel)
	})

	feedbackRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
