package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/telemetry"
)

// ObjectStore is the S3-compatible bucket snapshots sync through.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// Snapshot is the portable JSON form of a hub's knowledge base. Embeddings
// are deliberately not exported; the importing hub re-embeds with its own
// model configuration.
type Snapshot struct {
	ExportedAt time.Time       `json:"exported_at"`
	Entries    []SnapshotEntry `json:"entries"`
	Config     map[string]any  `json:"config,omitempty"`
}

type SnapshotEntry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// SnapshotService exports the knowledge base to the shared bucket and seeds
// a hub from a previously exported snapshot.
type SnapshotService struct {
	kb    *KBService
	store ObjectStore
}

func NewSnapshotService(kb *KBService, store ObjectStore) *SnapshotService {
	return &SnapshotService{kb: kb, store: store}
}

// Export writes the full knowledge base and shelter config to the bucket
// under the given key. Returns the number of entries exported.
func (s *SnapshotService) Export(ctx context.Context, key string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "SnapshotService.Export", telemetry.SpanAttributes{
		Operation: "export",
	})
	defer span.End()

	snapshot := Snapshot{ExportedAt: time.Now().UTC()}

	cursor := ""
	for {
		page, err := s.kb.ListEntries(ctx, ListEntriesInput{Cursor: cursor, Limit: 100})
		if err != nil {
			return 0, fmt.Errorf("failed to list entries: %w", err)
		}
		for _, e := range page.Items {
			snapshot.Entries = append(snapshot.Entries, SnapshotEntry{
				Question: e.Question,
				Answer:   e.Answer,
				Category: e.Category,
				Tags:     e.Tags,
			})
		}
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	config, err := s.kb.GetConfig(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load config: %w", err)
	}
	snapshot.Config = config

	body, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.store.PutObject(ctx, key, body, "application/json"); err != nil {
		return 0, err
	}
	return len(snapshot.Entries), nil
}

// Import seeds the knowledge base from a snapshot in the bucket. Imported
// entries carry sync provenance and queue embedding jobs like any other
// create; a non-empty config in the snapshot is published.
func (s *SnapshotService) Import(ctx context.Context, key string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "SnapshotService.Import", telemetry.SpanAttributes{
		Operation: "import",
	})
	defer span.End()

	body, err := s.store.GetObject(ctx, key)
	if err != nil {
		return 0, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return 0, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	imported := 0
	for _, e := range snapshot.Entries {
		_, err := s.kb.CreateEntry(ctx, CreateEntryInput{
			Question:   e.Question,
			Answer:     e.Answer,
			Category:   e.Category,
			Tags:       e.Tags,
			Provenance: domain.ProvenanceSync,
		})
		if err != nil {
			return imported, fmt.Errorf("failed to import entry %q: %w", e.Question, err)
		}
		imported++
	}

	if len(snapshot.Config) > 0 {
		if err := s.kb.PublishConfig(ctx, snapshot.Config); err != nil {
			return imported, err
		}
	}

	return imported, nil
}
