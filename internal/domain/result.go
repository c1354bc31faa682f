package domain

// AnswerType is the terminal state of a retrieval/gating decision.
type AnswerType string

const (
	AnswerDirectMatch        AnswerType = "DIRECT_MATCH"
	AnswerNeedsClarification AnswerType = "NEEDS_CLARIFICATION"
	AnswerNoMatch            AnswerType = "NO_MATCH"
)

// GatingResult is the single typed result of a retrieve() call. Which fields
// are populated depends on Type:
//
//   - DIRECT_MATCH: AnswerText always; Entry/EntryID set when a corpus entry
//     backs the answer (inventory and conversational answers have none).
//   - NEEDS_CLARIFICATION: Categories holds the candidate set; no Entry.
//   - NO_MATCH: AnswerText holds fixed guidance text.
//
// Intent, IntentConfidence and the raw-best shadow fields are populated on
// every terminal path so logging stays useful even when the pipeline degrades.
type GatingResult struct {
	Type       AnswerType
	AnswerText string
	Confidence float64

	// Backing entry, when one exists.
	EntryID string
	Entry   *EntrySnapshot

	// Clarification candidate categories, sorted, distinct.
	Categories []string

	Intent           string
	IntentConfidence float64

	// Shadow telemetry: what the raw cosine ranking would have picked,
	// independent of bias blending.
	RawBestScore   float64
	RawBestEntryID string

	// True when bias blending was applied to the ranking used for gating.
	BiasApplied bool
}

// RetrievalCandidate is one scored corpus entry inside the engine.
type RetrievalCandidate struct {
	Entry    EntrySnapshot
	Score    float64 // raw cosine similarity, never mutated
	Adjusted float64 // bias-blended score; equals Score when bias is off
}
