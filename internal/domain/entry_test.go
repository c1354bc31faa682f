package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKnowledgeEntry(t *testing.T) {
	now := time.Now().UTC()

	valid := NewKnowledgeEntry("id-1", "where is food served", "Meals are served in Hall B.", "food", []string{"meals"}, ProvenanceManual, now, now)

	tests := []struct {
		name    string
		mutate  func(e *KnowledgeEntry)
		wantErr string
	}{
		{name: "valid entry", mutate: func(e *KnowledgeEntry) {}},
		{name: "missing ID", mutate: func(e *KnowledgeEntry) { e.ID = "" }, wantErr: "ID is required"},
		{name: "missing question", mutate: func(e *KnowledgeEntry) { e.Question = "" }, wantErr: "Question is required"},
		{name: "missing answer", mutate: func(e *KnowledgeEntry) { e.Answer = "" }, wantErr: "Answer is required"},
		{name: "bad provenance", mutate: func(e *KnowledgeEntry) { e.Provenance = "guessed" }, wantErr: "Provenance is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := *valid
			tt.mutate(&entry)
			err := ValidateKnowledgeEntry(&entry)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}

	assert.Error(t, ValidateKnowledgeEntry(nil))
}

func TestEntrySnapshotCopiesTags(t *testing.T) {
	now := time.Now().UTC()
	entry := NewKnowledgeEntry("id-1", "q", "a", "food", []string{"meals", "schedule"}, ProvenanceImport, now, now)

	snap := entry.Snapshot()
	require.Equal(t, []string{"meals", "schedule"}, snap.Tags)

	// Mutating the live record must not leak into the snapshot.
	entry.Tags[0] = "changed"
	assert.Equal(t, "meals", snap.Tags[0])
}
