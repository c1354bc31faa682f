package domain

import "time"

// EntryBias is a learned per-entry re-ranking nudge in [-1, 1], derived from
// explicit kiosk feedback. Owned by the bias engine; the gating engine only
// reads it.
type EntryBias struct {
	EntryID   string
	Bias      float64
	UpdatedAt time.Time
}

// FeedbackLabel marks a feedback event as positive or negative.
type FeedbackLabel int

const (
	FeedbackPositive FeedbackLabel = 1
	FeedbackNegative FeedbackLabel = -1
)

// FeedbackEvent is one explicit thumbs-up/down from a kiosk user, attributed
// to the entry that backed the answer.
type FeedbackEvent struct {
	ID        string
	EntryID   string
	KioskID   string
	SessionID string
	Label     FeedbackLabel
	CreatedAt time.Time
}
