package domain

import "time"

// EmbeddingJobStatus tracks an embedding job through its lifecycle
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// EmbeddingJob queues one entry for (re-)embedding by the background worker.
// Entries are created and edited without a vector; the worker fills it in.
type EmbeddingJob struct {
	ID          string
	EntryID     string
	Status      EmbeddingJobStatus
	Retries     int
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
