package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reliefworks/kioskhub/internal/service"
)

// QueryLogRepository stores query logs for evaluation and shadow-ranking
// analysis.
type QueryLogRepository struct {
	pool *pgxpool.Pool
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{pool: pool}
}

func (r *QueryLogRepository) CreateQueryLog(ctx context.Context, entry service.QueryLogEntry) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO query_logs (kiosk_id, session_id, query, language, answer_type, confidence,
		                         intent, intent_confidence, entry_id, raw_best_entry_id, raw_best_score,
		                         bias_applied, rewrite_applied, is_retry, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id`,
		nullableString(entry.KioskID),
		nullableString(entry.SessionID),
		entry.Query,
		nullableString(entry.Language),
		entry.AnswerType,
		entry.Confidence,
		nullableString(entry.Intent),
		entry.IntentConfidence,
		nullableString(entry.EntryID),
		nullableString(entry.RawBestEntryID),
		entry.RawBestScore,
		entry.BiasApplied,
		entry.RewriteApplied,
		entry.IsRetry,
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
