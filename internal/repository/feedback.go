package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reliefworks/kioskhub/internal/domain"
)

// FeedbackRepository stores explicit answer feedback for the bias engine.
type FeedbackRepository struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepository(pool *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

func (r *FeedbackRepository) Create(ctx context.Context, event *domain.FeedbackEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO feedback_log (id, entry_id, kiosk_id, session_id, label, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.EntryID, nullableString(event.KioskID), nullableString(event.SessionID), int(event.Label), event.CreatedAt,
	)
	return err
}
