// Package retrieval is the query-to-answer gating engine: it takes a
// normalized kiosk query through inventory matching, intent classification,
// vector search and confidence-threshold gating, and produces one typed
// GatingResult. All external failures degrade to NO_MATCH; nothing here is
// fatal to the hosting process.
package retrieval

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/reliefworks/kioskhub/internal/corpus"
	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/intent"
	"github.com/reliefworks/kioskhub/internal/normalize"
	"github.com/reliefworks/kioskhub/internal/shelter"
	"github.com/reliefworks/kioskhub/internal/vector"
)

// Gating defaults. Non-English thresholds are lower because translated
// queries are noisier.
const (
	DefaultDirectThreshold              = 0.60
	DefaultDirectThresholdNonEnglish    = 0.50
	DefaultClarificationFloor           = 0.40
	DefaultClarificationFloorNonEnglish = 0.38
	DefaultIntentActionThreshold        = 0.35
	DefaultBiasAlpha                    = 0.10
	DefaultTopK                         = 5
)

// Fixed reply texts for the paths that never reach the corpus.
var conversationalAnswers = map[string]string{
	"greeting":   "Hello! I can help you find information about this center. Ask me about food, medical care, sleeping areas, or transportation.",
	"identity":   "I am the information kiosk for this center. I answer questions about the services and supplies available here.",
	"capability": "I can answer questions about food, medical care, registration, sleeping areas, transportation, facilities, and supplies at this center.",
	"small_talk": "You're welcome! Is there anything else I can help you find?",
	"goodbye":    "Goodbye! Come back any time you need information.",
}

const (
	noMatchText     = "I couldn't find a good answer for that. I can help with food, medical care, registration, sleeping areas, transportation, facilities, and supplies at this center."
	emptyCorpusText = "There are no knowledge base entries available yet. Please ask a staff member for help."
	genericCategory = "general"
)

// categoryIntents maps clarification categories to their canonical intent so
// a retry can reuse the intent's enrichment keywords. Unmapped categories are
// appended to the search string as-is.
var categoryIntents = map[string]string{
	"food":           "food",
	"meals":          "food",
	"medical":        "medical",
	"health":         "medical",
	"registration":   "registration",
	"sleeping":       "sleeping",
	"shelter":        "sleeping",
	"transportation": "transportation",
	"transport":      "transportation",
	"safety":         "safety",
	"facilities":     "facilities",
	"pets":           "pets",
	"donations":      "donations",
	"hours":          "hours",
	"location":       "location",
	"general":        "general_info",
}

// Embedder produces the query vector for search.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Classifier is the intent classifier the engine consults before searching.
type Classifier interface {
	ClassifyTop2(ctx context.Context, query string) ([2]intent.Prediction, error)
}

// BiasProvider supplies the per-entry feedback re-ranking signal. A nil
// provider disables blending.
type BiasProvider interface {
	Biases(ctx context.Context) (map[string]float64, error)
}

// Config holds the gating thresholds. Zero values fall back to defaults.
type Config struct {
	DirectThreshold              float64
	DirectThresholdNonEnglish    float64
	ClarificationFloor           float64
	ClarificationFloorNonEnglish float64
	IntentActionThreshold        float64
	BiasAlpha                    float64
	TopK                         int
}

func (c Config) withDefaults() Config {
	if c.DirectThreshold <= 0 {
		c.DirectThreshold = DefaultDirectThreshold
	}
	if c.DirectThresholdNonEnglish <= 0 {
		c.DirectThresholdNonEnglish = DefaultDirectThresholdNonEnglish
	}
	if c.ClarificationFloor <= 0 {
		c.ClarificationFloor = DefaultClarificationFloor
	}
	if c.ClarificationFloorNonEnglish <= 0 {
		c.ClarificationFloorNonEnglish = DefaultClarificationFloorNonEnglish
	}
	if c.IntentActionThreshold <= 0 {
		c.IntentActionThreshold = DefaultIntentActionThreshold
	}
	if c.BiasAlpha <= 0 {
		c.BiasAlpha = DefaultBiasAlpha
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	return c
}

// Request is one retrieve() invocation.
type Request struct {
	Query string
	// IsRetry disables clarification; set by the caller on the second pass
	// after a rewrite or a clarification answer.
	IsRetry bool
	// SelectedCategory is the category the user picked after a
	// NEEDS_CLARIFICATION answer; folded into the search string.
	SelectedCategory string
	// ExcludeIDs removes entries from the ranked candidates, preserving order.
	ExcludeIDs []string
	// Language is the query's language code; anything other than "en"
	// (or empty) uses the lower non-English thresholds.
	Language string
}

// Engine orchestrates the full gating pipeline. All dependencies are injected
// at construction; the engine holds no ambient global state and is safe for
// concurrent use.
type Engine struct {
	classifier Classifier
	embedder   Embedder
	corpus     *corpus.Cache
	shelterCfg *shelter.ConfigCache
	bias       BiasProvider
	cfg        Config
}

// NewEngine builds a gating engine. bias may be nil to disable feedback
// re-ranking; shelterCfg may be nil to disable the inventory short-circuit.
func NewEngine(classifier Classifier, embedder Embedder, corpusCache *corpus.Cache, shelterCfg *shelter.ConfigCache, bias BiasProvider, cfg Config) *Engine {
	return &Engine{
		classifier: classifier,
		embedder:   embedder,
		corpus:     corpusCache,
		shelterCfg: shelterCfg,
		bias:       bias,
		cfg:        cfg.withDefaults(),
	}
}

// Retrieve runs the pipeline for one query and always produces a terminal
// result; degraded stages fall back rather than fail.
func (e *Engine) Retrieve(ctx context.Context, req Request) *domain.GatingResult {
	query := normalize.Query(req.Query, req.Language)
	if query == "" {
		return &domain.GatingResult{
			Type:       domain.AnswerNoMatch,
			AnswerText: noMatchText,
			Intent:     intent.Unclear,
		}
	}

	// Inventory triggers bypass vector search entirely.
	if answer, ok := e.checkInventory(ctx, query); ok {
		return &domain.GatingResult{
			Type:       domain.AnswerDirectMatch,
			AnswerText: answer,
			Confidence: 1.0,
			Intent:     "inventory",
		}
	}

	top, err := e.classifier.ClassifyTop2(ctx, query)
	if err != nil {
		log.Printf("retrieval: intent classification failed: %v", err)
		top = [2]intent.Prediction{{Label: intent.Unclear}, {Label: intent.Unclear}}
	}
	best, second := top[0], top[1]

	// Conversational short-circuit: canned answer, no corpus access.
	if intent.IsConversational(best.Label) && best.Score >= e.cfg.IntentActionThreshold {
		return &domain.GatingResult{
			Type:             domain.AnswerDirectMatch,
			AnswerText:       conversationalAnswers[best.Label],
			Confidence:       best.Score,
			Intent:           best.Label,
			IntentConfidence: best.Score,
		}
	}

	result := e.search(ctx, query, req, best, second)
	result.Intent = best.Label
	result.IntentConfidence = best.Score
	return result
}

func (e *Engine) checkInventory(ctx context.Context, query string) (string, bool) {
	if e.shelterCfg == nil {
		return "", false
	}
	snap, err := e.shelterCfg.Load(ctx)
	if err != nil {
		log.Printf("retrieval: shelter config load failed, skipping inventory check: %v", err)
		return "", false
	}
	return shelter.CheckInventory(query, snap)
}

func (e *Engine) search(ctx context.Context, query string, req Request, best, second intent.Prediction) *domain.GatingResult {
	searchText := e.buildSearchString(query, req, best, second)

	embedding, err := e.embedder.EmbedText(ctx, searchText)
	if err != nil {
		log.Printf("retrieval: query embedding failed: %v", err)
		return &domain.GatingResult{Type: domain.AnswerNoMatch, AnswerText: noMatchText}
	}

	snap, err := e.corpus.Load(ctx)
	if err != nil {
		log.Printf("retrieval: corpus load failed: %v", err)
		return &domain.GatingResult{Type: domain.AnswerNoMatch, AnswerText: noMatchText}
	}
	if snap.Empty() {
		return &domain.GatingResult{Type: domain.AnswerNoMatch, AnswerText: emptyCorpusText}
	}

	scores, err := vector.CosineAll(embedding, snap.Matrix)
	if err != nil {
		log.Printf("retrieval: similarity computation failed: %v", err)
		return &domain.GatingResult{Type: domain.AnswerNoMatch, AnswerText: noMatchText}
	}

	candidates := make([]domain.RetrievalCandidate, len(scores))
	for i, score := range scores {
		candidates[i] = domain.RetrievalCandidate{
			Entry:    snap.Entries[i],
			Score:    score,
			Adjusted: score,
		}
	}

	// Shadow telemetry: the raw-cosine winner, independent of blending.
	rawBest := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > rawBest.Score {
			rawBest = c
		}
	}

	biasApplied := e.applyBias(ctx, candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Adjusted > candidates[j].Adjusted
	})
	if len(candidates) > e.cfg.TopK {
		candidates = candidates[:e.cfg.TopK]
	}
	candidates = excludeCandidates(candidates, req.ExcludeIDs)

	result := e.gate(candidates, req, best)
	result.RawBestScore = rawBest.Score
	result.RawBestEntryID = rawBest.Entry.ID
	result.BiasApplied = biasApplied
	return result
}

// buildSearchString appends intent enrichment keywords to the normalized
// query, plus the clarification category's keywords on a retry.
func (e *Engine) buildSearchString(query string, req Request, best, second intent.Prediction) string {
	parts := []string{query}

	if best.Label != intent.Unclear && best.Score >= e.cfg.IntentActionThreshold {
		if kw := intent.Enrichment(best.Label); kw != "" {
			parts = append(parts, kw)
		}
	}
	if second.Label != intent.Unclear && second.Label != best.Label && second.Score >= e.cfg.IntentActionThreshold {
		if kw := intent.Enrichment(second.Label); kw != "" {
			parts = append(parts, kw)
		}
	}

	if req.IsRetry && req.SelectedCategory != "" {
		category := strings.ToLower(strings.TrimSpace(req.SelectedCategory))
		if label, ok := categoryIntents[category]; ok {
			if kw := intent.Enrichment(label); kw != "" {
				parts = append(parts, kw)
			}
		} else if category != "" {
			parts = append(parts, category)
		}
	}

	return strings.Join(parts, " ")
}

// applyBias blends the feedback signal into Adjusted scores. A blending
// failure falls back to raw ranking for this call only.
func (e *Engine) applyBias(ctx context.Context, candidates []domain.RetrievalCandidate) bool {
	if e.bias == nil {
		return false
	}
	biases, err := e.bias.Biases(ctx)
	if err != nil {
		log.Printf("retrieval: bias load failed, ranking by raw score: %v", err)
		return false
	}
	if len(biases) == 0 {
		return false
	}

	for i := range candidates {
		bias, ok := biases[candidates[i].Entry.ID]
		if !ok {
			continue
		}
		adjusted := candidates[i].Score + e.cfg.BiasAlpha*bias
		if adjusted < 0 {
			adjusted = 0
		}
		if adjusted > 1 {
			adjusted = 1
		}
		candidates[i].Adjusted = adjusted
	}
	return true
}

// excludeCandidates removes entries by ID, preserving relative order.
func excludeCandidates(candidates []domain.RetrievalCandidate, excludeIDs []string) []domain.RetrievalCandidate {
	if len(excludeIDs) == 0 {
		return candidates
	}
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if !excluded[c.Entry.ID] {
			kept = append(kept, c)
		}
	}
	return kept
}

func (e *Engine) gate(candidates []domain.RetrievalCandidate, req Request, bestIntent intent.Prediction) *domain.GatingResult {
	if len(candidates) == 0 {
		return &domain.GatingResult{Type: domain.AnswerNoMatch, AnswerText: noMatchText}
	}

	direct, floor := e.thresholds(req.Language)
	best := candidates[0]
	score := best.Adjusted

	// Clarification is only offered on a first pass with an unresolved,
	// non-conversational intent.
	clarifiable := !req.IsRetry &&
		(bestIntent.Label == intent.Unclear || bestIntent.Score < e.cfg.IntentActionThreshold) &&
		!intent.IsConversational(bestIntent.Label)

	switch {
	case score >= direct:
		return directMatch(best)
	case score >= floor && clarifiable:
		return &domain.GatingResult{
			Type:       domain.AnswerNeedsClarification,
			Confidence: score,
			Categories: candidateCategories(candidates),
		}
	case score >= floor:
		// A borderline match with a confident intent is still returned
		// rather than discarded.
		return directMatch(best)
	default:
		return &domain.GatingResult{
			Type:       domain.AnswerNoMatch,
			AnswerText: noMatchText,
			Confidence: score,
		}
	}
}

func (e *Engine) thresholds(language string) (direct, floor float64) {
	if language == "" || strings.EqualFold(language, "en") {
		return e.cfg.DirectThreshold, e.cfg.ClarificationFloor
	}
	return e.cfg.DirectThresholdNonEnglish, e.cfg.ClarificationFloorNonEnglish
}

func directMatch(c domain.RetrievalCandidate) *domain.GatingResult {
	entry := c.Entry
	return &domain.GatingResult{
		Type:       domain.AnswerDirectMatch,
		AnswerText: entry.Answer,
		Confidence: c.Adjusted,
		EntryID:    entry.ID,
		Entry:      &entry,
	}
}

// candidateCategories returns the sorted distinct categories across the
// candidates, falling back to a single generic category.
func candidateCategories(candidates []domain.RetrievalCandidate) []string {
	seen := make(map[string]bool, len(candidates))
	var categories []string
	for _, c := range candidates {
		category := strings.TrimSpace(c.Entry.Category)
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		categories = append(categories, category)
	}
	if len(categories) == 0 {
		return []string{genericCategory}
	}
	sort.Strings(categories)
	return categories
}
