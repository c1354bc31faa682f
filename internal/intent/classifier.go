// Package intent classifies normalized kiosk queries into a fixed set of
// coarse intent labels by nearest-centroid matching over exemplar phrase
// embeddings. Centroids are computed once at construction and immutable
// afterwards.
package intent

import (
	"context"
	"fmt"

	"github.com/reliefworks/kioskhub/internal/vector"
)

const (
	// Unclear is the sentinel label returned when no centroid scores at or
	// above UnclearThreshold. Callers must never treat a sub-threshold label
	// as a reliable intent.
	Unclear = "unclear"

	// UnclearThreshold is the minimum centroid similarity for a label to be
	// reported at all.
	UnclearThreshold = 0.30
)

// Labels is the fixed intent set, in build order.
var Labels = []string{
	"greeting",
	"identity",
	"capability",
	"small_talk",
	"food",
	"medical",
	"registration",
	"sleeping",
	"transportation",
	"safety",
	"facilities",
	"lost_person",
	"pets",
	"donations",
	"hours",
	"location",
	"general_info",
	"goodbye",
	"inventory",
}

// conversational intents short-circuit retrieval entirely.
var conversational = map[string]bool{
	"greeting":   true,
	"identity":   true,
	"capability": true,
	"small_talk": true,
	"goodbye":    true,
}

// IsConversational reports whether a label is a pure conversational intent
// that should never trigger a corpus lookup.
func IsConversational(label string) bool {
	return conversational[label]
}

// enrichment maps each intent to keywords appended to the query before
// embedding, improving recall against tersely-worded entries.
var enrichment = map[string]string{
	"greeting":       "hello greeting",
	"identity":       "kiosk assistant information",
	"capability":     "help information services",
	"small_talk":     "thanks okay",
	"food":           "food meals schedule cafeteria breakfast lunch dinner",
	"medical":        "medical doctor nurse health first aid",
	"registration":   "registration sign in check in intake",
	"sleeping":       "sleeping beds cots rest area",
	"transportation": "bus shuttle transport ride leave",
	"safety":         "safety emergency evacuation exit",
	"facilities":     "bathroom restroom showers laundry charging wifi",
	"lost_person":    "lost missing family reunification",
	"pets":           "pets dog cat animal",
	"donations":      "donate donations",
	"hours":          "hours open close schedule",
	"location":       "address location directions building",
	"general_info":   "information services help",
	"goodbye":        "goodbye bye",
	"inventory":      "supplies available stock food water medicine blankets hygiene clothing diapers charging cots",
}

// Enrichment returns the recall keywords for a label, or "" when none exist.
func Enrichment(label string) string {
	return enrichment[label]
}

// Embedder is the vector producer the classifier depends on.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Prediction is one classified label with its centroid similarity.
type Prediction struct {
	Label string
	Score float64
}

// Classifier assigns intent labels by cosine similarity against per-label
// centroid vectors. Safe for concurrent use after construction.
type Classifier struct {
	embedder  Embedder
	labels    []string // labels with a built centroid, in Labels order
	centroids map[string][]float32
}

// NewClassifier batch-embeds every exemplar phrase, mean-pools each label's
// phrases into a centroid and L2-normalizes it. Labels without exemplars are
// skipped. An empty exemplar table yields a classifier that always answers
// ("unclear", 0).
func NewClassifier(ctx context.Context, embedder Embedder) (*Classifier, error) {
	return newClassifier(ctx, embedder, exemplars)
}

func newClassifier(ctx context.Context, embedder Embedder, table map[string][]string) (*Classifier, error) {
	c := &Classifier{
		embedder:  embedder,
		centroids: make(map[string][]float32),
	}

	var phrases []string
	var phraseLabels []string
	for _, label := range Labels {
		for _, p := range table[label] {
			phrases = append(phrases, p)
			phraseLabels = append(phraseLabels, label)
		}
	}

	if len(phrases) == 0 {
		return c, nil
	}

	embeddings, err := embedder.EmbedTexts(ctx, phrases)
	if err != nil {
		return nil, fmt.Errorf("failed to embed intent exemplars: %w", err)
	}

	byLabel := make(map[string][][]float32)
	for i, e := range embeddings {
		byLabel[phraseLabels[i]] = append(byLabel[phraseLabels[i]], e)
	}

	for _, label := range Labels {
		vecs := byLabel[label]
		if len(vecs) == 0 {
			continue
		}
		c.centroids[label] = vector.Normalize(vector.Mean(vecs))
		c.labels = append(c.labels, label)
	}

	return c, nil
}

// Classify returns the best label and its score, or (Unclear, score) when the
// best centroid similarity is below UnclearThreshold. With no centroids built
// it always returns (Unclear, 0).
func (c *Classifier) Classify(ctx context.Context, query string) (string, float64, error) {
	top, err := c.ClassifyTop2(ctx, query)
	if err != nil {
		return Unclear, 0, err
	}
	return top[0].Label, top[0].Score, nil
}

// ClassifyTop2 returns the two best predictions so callers can enrich the
// search query with a close second intent. The second slot repeats the
// sentinel when fewer than two centroids exist. Sub-threshold slots carry the
// Unclear label with the raw score preserved.
func (c *Classifier) ClassifyTop2(ctx context.Context, query string) ([2]Prediction, error) {
	unclear := [2]Prediction{{Label: Unclear}, {Label: Unclear}}

	if len(c.centroids) == 0 {
		return unclear, nil
	}

	embedding, err := c.embedder.EmbedText(ctx, query)
	if err != nil {
		return unclear, fmt.Errorf("failed to embed query: %w", err)
	}

	q := vector.Normalize(embedding)
	if isZero(q) {
		return unclear, nil
	}

	best := Prediction{Label: Unclear, Score: -1}
	second := Prediction{Label: Unclear, Score: -1}
	for _, label := range c.labels {
		score, err := vector.Cosine(q, c.centroids[label])
		if err != nil {
			return unclear, fmt.Errorf("centroid %s: %w", label, err)
		}
		switch {
		case score > best.Score:
			second = best
			best = Prediction{Label: label, Score: score}
		case score > second.Score:
			second = Prediction{Label: label, Score: score}
		}
	}

	if best.Score < UnclearThreshold {
		best.Label = Unclear
	}
	if second.Score < UnclearThreshold {
		second = Prediction{Label: Unclear, Score: maxFloat(second.Score, 0)}
	}

	if best.Score < 0 {
		best.Score = 0
	}

	return [2]Prediction{best, second}, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
