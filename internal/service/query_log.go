package service

import (
	"context"

	"github.com/reliefworks/kioskhub/internal/domain"
)

// QueryLogEntry captures one kiosk query and its gating outcome for
// evaluation and shadow-ranking analysis.
type QueryLogEntry struct {
	KioskID          string
	SessionID        string
	Query            string
	Language         string
	AnswerType       string
	Confidence       float64
	Intent           string
	IntentConfidence float64
	EntryID          string
	RawBestEntryID   string
	RawBestScore     float64
	BiasApplied      bool
	RewriteApplied   bool
	IsRetry          bool
	DurationMs       int
}

// QueryLogRepository persists query logs.
type QueryLogRepository interface {
	CreateQueryLog(ctx context.Context, entry QueryLogEntry) (string, error)
}

// FeedbackRepositoryInterface persists explicit answer feedback.
type FeedbackRepositoryInterface interface {
	Create(ctx context.Context, event *domain.FeedbackEvent) error
}
