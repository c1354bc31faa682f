package domain

import (
	"fmt"
	"time"
)

// EntryProvenance records how a knowledge entry got into the store
type EntryProvenance string

const (
	ProvenanceManual EntryProvenance = "manual"
	ProvenanceImport EntryProvenance = "import"
	ProvenanceSync   EntryProvenance = "sync"
)

// KnowledgeEntry represents one question/answer record in the knowledge base.
// The backing store owns the live record; matching code only ever sees an
// EntrySnapshot copied out of it.
type KnowledgeEntry struct {
	ID         string
	Question   string
	Answer     string
	Category   string
	Tags       []string
	Enabled    bool
	Embedding  []float32 // nil until the backfill worker has embedded it
	Provenance EntryProvenance
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EntrySnapshot is a read-only copy of an entry's display fields, held by the
// corpus cache so it never outlives or aliases a live store record.
type EntrySnapshot struct {
	ID       string
	Question string
	Answer   string
	Category string
	Tags     []string
}

// Snapshot copies the display fields of an entry.
func (e *KnowledgeEntry) Snapshot() EntrySnapshot {
	tags := make([]string, len(e.Tags))
	copy(tags, e.Tags)
	return EntrySnapshot{
		ID:       e.ID,
		Question: e.Question,
		Answer:   e.Answer,
		Category: e.Category,
		Tags:     tags,
	}
}

// NewKnowledgeEntry creates a new KnowledgeEntry instance
func NewKnowledgeEntry(
	id, question, answer, category string,
	tags []string,
	provenance EntryProvenance,
	createdAt, updatedAt time.Time,
) *KnowledgeEntry {
	return &KnowledgeEntry{
		ID:         id,
		Question:   question,
		Answer:     answer,
		Category:   category,
		Tags:       tags,
		Enabled:    true,
		Provenance: provenance,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}

// ValidateKnowledgeEntry validates a KnowledgeEntry instance
func ValidateKnowledgeEntry(e *KnowledgeEntry) error {
	if e == nil {
		return fmt.Errorf("entry cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("entry ID is required")
	}

	if e.Question == "" {
		return fmt.Errorf("entry Question is required")
	}

	if e.Answer == "" {
		return fmt.Errorf("entry Answer is required")
	}

	if !isValidProvenance(e.Provenance) {
		return fmt.Errorf("entry Provenance is invalid: %s", e.Provenance)
	}

	return nil
}

// isValidProvenance checks if an EntryProvenance is valid
func isValidProvenance(p EntryProvenance) bool {
	switch p {
	case ProvenanceManual, ProvenanceImport, ProvenanceSync:
		return true
	}
	return false
}
