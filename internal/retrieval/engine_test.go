package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/reliefworks/kioskhub/internal/corpus"
	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/intent"
	"github.com/reliefworks/kioskhub/internal/shelter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassifier returns a fixed top-2 prediction.
type stubClassifier struct {
	top [2]intent.Prediction
	err error
}

func (s *stubClassifier) ClassifyTop2(ctx context.Context, query string) ([2]intent.Prediction, error) {
	if s.err != nil {
		return [2]intent.Prediction{{Label: intent.Unclear}, {Label: intent.Unclear}}, s.err
	}
	return s.top, nil
}

// stubEmbedder returns one fixed vector for every text and counts calls.
type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

type stubEntryStore struct {
	entries []*domain.KnowledgeEntry
	calls   int
}

func (s *stubEntryStore) ListEnabledWithEmbeddings(ctx context.Context) ([]*domain.KnowledgeEntry, error) {
	s.calls++
	return s.entries, nil
}

type stubBiasProvider struct {
	biases map[string]float64
	err    error
}

func (s *stubBiasProvider) Biases(ctx context.Context) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.biases, nil
}

type stubConfigStore struct {
	values map[string]any
}

func (s *stubConfigStore) LoadConfig(ctx context.Context) (map[string]any, error) {
	return s.values, nil
}

// entryAt builds an enabled entry whose cosine against the unit query vector
// (1, 0) equals score.
func entryAt(id, category string, score float64) *domain.KnowledgeEntry {
	y := math.Sqrt(1 - score*score)
	return &domain.KnowledgeEntry{
		ID:        id,
		Question:  "q " + id,
		Answer:    "answer " + id,
		Category:  category,
		Enabled:   true,
		Embedding: []float32{float32(score), float32(y)},
	}
}

func unclearPrediction() [2]intent.Prediction {
	return [2]intent.Prediction{{Label: intent.Unclear}, {Label: intent.Unclear}}
}

func newTestEngine(classifier Classifier, embedder Embedder, entries []*domain.KnowledgeEntry, bias BiasProvider) (*Engine, *stubEntryStore) {
	store := &stubEntryStore{entries: entries}
	engine := NewEngine(classifier, embedder, corpus.NewCache(store), nil, bias, Config{})
	return engine, store
}

func queryVec() []float32 { return []float32{1, 0} }

func TestRetrieve_InventoryShortCircuit(t *testing.T) {
	embedder := &stubEmbedder{vec: queryVec()}
	store := &stubEntryStore{}
	shelterCache := shelter.NewConfigCache(&stubConfigStore{values: map[string]any{
		"inventory": map[string]any{
			"items": map[string]any{
				"food": map[string]any{"status": "limited", "quantity": "2 days"},
			},
		},
	}})

	engine := NewEngine(&stubClassifier{top: unclearPrediction()}, embedder, corpus.NewCache(store), shelterCache, nil, Config{})
	result := engine.Retrieve(context.Background(), Request{Query: "is there food"})

	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Contains(t, result.AnswerText, "limited")
	assert.Contains(t, result.AnswerText, "2 days")
	assert.Empty(t, result.EntryID)
	assert.Equal(t, 0, embedder.calls, "inventory path must not embed")
	assert.Equal(t, 0, store.calls, "inventory path must not touch the corpus")
}

func TestRetrieve_ConversationalShortCircuit(t *testing.T) {
	embedder := &stubEmbedder{vec: queryVec()}
	classifier := &stubClassifier{top: [2]intent.Prediction{
		{Label: "greeting", Score: 0.8},
		{Label: intent.Unclear},
	}}
	engine, store := newTestEngine(classifier, embedder, nil, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "hello"})

	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.Equal(t, conversationalAnswers["greeting"], result.AnswerText)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Equal(t, "greeting", result.Intent)
	assert.Empty(t, result.EntryID)
	assert.Equal(t, 0, embedder.calls, "conversational path must not embed")
	assert.Equal(t, 0, store.calls, "conversational path must not touch the corpus")
}

func TestRetrieve_ConversationalBelowActionThresholdSearches(t *testing.T) {
	classifier := &stubClassifier{top: [2]intent.Prediction{
		{Label: intent.Unclear, Score: 0.2},
		{Label: intent.Unclear},
	}}
	engine, store := newTestEngine(classifier, &stubEmbedder{vec: queryVec()},
		[]*domain.KnowledgeEntry{entryAt("a", "food", 0.9)}, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "hm hello maybe"})

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()}, nil, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "where do I sleep"})

	assert.Equal(t, domain.AnswerNoMatch, result.Type)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Contains(t, result.AnswerText, "no knowledge base entries available")
}

func TestRetrieve_DirectMatchAboveThreshold(t *testing.T) {
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()},
		[]*domain.KnowledgeEntry{entryAt("a", "food", 0.75), entryAt("b", "medical", 0.3)}, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "where is food served"})

	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.Equal(t, "a", result.EntryID)
	assert.Equal(t, "answer a", result.AnswerText)
	assert.InDelta(t, 0.75, result.Confidence, 1e-4)
	assert.Equal(t, "a", result.RawBestEntryID)
	assert.InDelta(t, 0.75, result.RawBestScore, 1e-4)
}

func TestRetrieve_ClarificationBand(t *testing.T) {
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()},
		[]*domain.KnowledgeEntry{
			entryAt("a", "food", 0.50),
			entryAt("b", "medical", 0.48),
			entryAt("c", "food", 0.45),
		}, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "where can I get some help here"})

	assert.Equal(t, domain.AnswerNeedsClarification, result.Type)
	assert.InDelta(t, 0.50, result.Confidence, 1e-4)
	assert.Equal(t, []string{"food", "medical"}, result.Categories)
	assert.Empty(t, result.EntryID)
	assert.Empty(t, result.AnswerText)
}

func TestRetrieve_BorderlineWithConfidentIntentFallsThrough(t *testing.T) {
	classifier := &stubClassifier{top: [2]intent.Prediction{
		{Label: "food", Score: 0.7},
		{Label: intent.Unclear},
	}}
	engine, _ := newTestEngine(classifier, &stubEmbedder{vec: queryVec()},
		[]*domain.KnowledgeEntry{entryAt("a", "food", 0.50)}, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "when is breakfast"})

	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.Equal(t, "a", result.EntryID)
}

func TestRetrieve_RetryDisablesClarification(t *testing.T) {
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()},
		[]*domain.KnowledgeEntry{entryAt("a", "food", 0.50)}, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "where can I get some help here", IsRetry: true})

	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.Equal(t, "a", result.EntryID)
}

func TestRetrieve_BelowFloorNoMatch(t *testing.T) {
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()},
		[]*domain.KnowledgeEntry{entryAt("a", "food", 0.25)}, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "what about the thing"})

	assert.Equal(t, domain.AnswerNoMatch, result.Type)
	assert.InDelta(t, 0.25, result.Confidence, 1e-4)
	assert.Contains(t, result.AnswerText, "food")
	assert.Equal(t, intent.Unclear, result.Intent)
}

func TestRetrieve_NonEnglishThresholds(t *testing.T) {
	// 0.55 misses the English direct threshold (0.60) but clears the
	// non-English one (0.50).
	entries := []*domain.KnowledgeEntry{entryAt("a", "food", 0.55)}
	classifier := &stubClassifier{top: unclearPrediction()}

	engineEN, _ := newTestEngine(classifier, &stubEmbedder{vec: queryVec()}, entries, nil)
	resultEN := engineEN.Retrieve(context.Background(), Request{Query: "saan ang pagkain", Language: "en"})
	assert.Equal(t, domain.AnswerNeedsClarification, resultEN.Type)

	engineTL, _ := newTestEngine(classifier, &stubEmbedder{vec: queryVec()}, entries, nil)
	resultTL := engineTL.Retrieve(context.Background(), Request{Query: "saan ang pagkain", Language: "tl"})

	assert.Equal(t, domain.AnswerDirectMatch, resultTL.Type)
	assert.Equal(t, "a", resultTL.EntryID)
}

func TestRetrieve_ExclusionPreservesOrder(t *testing.T) {
	entries := []*domain.KnowledgeEntry{
		entryAt("A", "food", 0.9),
		entryAt("B", "food", 0.85),
		entryAt("C", "medical", 0.8),
		entryAt("D", "medical", 0.7),
		entryAt("E", "safety", 0.65),
	}
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()}, entries, nil)

	result := engine.Retrieve(context.Background(), Request{
		Query:      "tell me about services please",
		ExcludeIDs: []string{"A", "C"},
	})

	// B is the best remaining candidate, in original relative order.
	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.Equal(t, "B", result.EntryID)
	// Raw-best telemetry still names the excluded winner.
	assert.Equal(t, "A", result.RawBestEntryID)
	assert.InDelta(t, 0.9, result.RawBestScore, 1e-4)
}

func TestRetrieve_ExclusionEmptiesCandidates(t *testing.T) {
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()},
		[]*domain.KnowledgeEntry{entryAt("A", "food", 0.9)}, nil)

	result := engine.Retrieve(context.Background(), Request{
		Query:      "tell me about services please",
		ExcludeIDs: []string{"A"},
	})

	assert.Equal(t, domain.AnswerNoMatch, result.Type)
	assert.Equal(t, "A", result.RawBestEntryID)
	assert.InDelta(t, 0.9, result.RawBestScore, 1e-4)
}

func TestRetrieve_BiasReranksAndClamps(t *testing.T) {
	entries := []*domain.KnowledgeEntry{
		entryAt("raw-winner", "food", 0.62),
		entryAt("boosted", "food", 0.58),
	}
	bias := &stubBiasProvider{biases: map[string]float64{
		"boosted":    1.0,  // adjusted: 0.58 + 0.10 = 0.68
		"raw-winner": -1.0, // adjusted: 0.62 - 0.10 = 0.52
	}}
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()}, entries, bias)

	result := engine.Retrieve(context.Background(), Request{Query: "where is the food line today", IsRetry: true})

	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.Equal(t, "boosted", result.EntryID)
	assert.True(t, result.BiasApplied)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	// Shadow fields keep the raw-cosine winner.
	assert.Equal(t, "raw-winner", result.RawBestEntryID)
	assert.InDelta(t, 0.62, result.RawBestScore, 1e-4)
}

func TestRetrieve_BiasAdjustedScoreClampedToUnit(t *testing.T) {
	entries := []*domain.KnowledgeEntry{entryAt("a", "food", 0.99)}
	bias := &stubBiasProvider{biases: map[string]float64{"a": 1.0}}
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()}, entries, bias)

	result := engine.Retrieve(context.Background(), Request{Query: "where is the food line today"})

	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestRetrieve_BiasLoadFailureFallsBackToRaw(t *testing.T) {
	entries := []*domain.KnowledgeEntry{entryAt("a", "food", 0.75)}
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()},
		entries, &stubBiasProvider{err: errors.New("db down")})

	result := engine.Retrieve(context.Background(), Request{Query: "where is food served"})

	assert.Equal(t, domain.AnswerDirectMatch, result.Type)
	assert.False(t, result.BiasApplied)
	assert.InDelta(t, 0.75, result.Confidence, 1e-4)
}

func TestRetrieve_EmbedFailureFallsBackToNoMatch(t *testing.T) {
	classifier := &stubClassifier{top: [2]intent.Prediction{
		{Label: intent.Unclear, Score: 0.1},
		{Label: intent.Unclear},
	}}
	engine, _ := newTestEngine(classifier, &stubEmbedder{err: errors.New("embedder down")},
		[]*domain.KnowledgeEntry{entryAt("a", "food", 0.9)}, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "where is food served"})

	assert.Equal(t, domain.AnswerNoMatch, result.Type)
	// Degraded paths still carry intent telemetry.
	assert.Equal(t, intent.Unclear, result.Intent)
	assert.InDelta(t, 0.1, result.IntentConfidence, 1e-9)
}

func TestRetrieve_InvalidatedCacheDropsDisabledEntry(t *testing.T) {
	store := &stubEntryStore{entries: []*domain.KnowledgeEntry{
		entryAt("a", "food", 0.9),
		entryAt("b", "medical", 0.7),
	}}
	cache := corpus.NewCache(store)
	engine := NewEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()}, cache, nil, nil, Config{})

	result := engine.Retrieve(context.Background(), Request{Query: "where is food served"})
	require.Equal(t, "a", result.EntryID)

	store.entries[0].Enabled = false
	cache.Invalidate()

	result = engine.Retrieve(context.Background(), Request{Query: "where is food served"})
	assert.Equal(t, "b", result.EntryID, "a disabled entry must never appear after invalidation")
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	engine, store := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()}, nil, nil)

	result := engine.Retrieve(context.Background(), Request{Query: "   "})

	assert.Equal(t, domain.AnswerNoMatch, result.Type)
	assert.Equal(t, 0, store.calls)
}

func TestBuildSearchString(t *testing.T) {
	engine, _ := newTestEngine(&stubClassifier{top: unclearPrediction()}, &stubEmbedder{vec: queryVec()}, nil, nil)

	t.Run("appends enrichment for confident intents", func(t *testing.T) {
		s := engine.buildSearchString("when is breakfast", Request{},
			intent.Prediction{Label: "food", Score: 0.7},
			intent.Prediction{Label: "hours", Score: 0.5})
		assert.Contains(t, s, "when is breakfast")
		assert.Contains(t, s, intent.Enrichment("food"))
		assert.Contains(t, s, intent.Enrichment("hours"))
	})

	t.Run("skips sub-threshold second intent", func(t *testing.T) {
		s := engine.buildSearchString("when is breakfast", Request{},
			intent.Prediction{Label: "food", Score: 0.7},
			intent.Prediction{Label: "hours", Score: 0.2})
		assert.NotContains(t, s, intent.Enrichment("hours"))
	})

	t.Run("maps clarification category to intent keywords", func(t *testing.T) {
		s := engine.buildSearchString("where do I go", Request{IsRetry: true, SelectedCategory: "Medical"},
			intent.Prediction{Label: intent.Unclear}, intent.Prediction{Label: intent.Unclear})
		assert.Contains(t, s, intent.Enrichment("medical"))
	})

	t.Run("keeps unmapped category verbatim", func(t *testing.T) {
		s := engine.buildSearchString("where do I go", Request{IsRetry: true, SelectedCategory: "chaplain services"},
			intent.Prediction{Label: intent.Unclear}, intent.Prediction{Label: intent.Unclear})
		assert.Contains(t, s, "chaplain services")
	})
}
