package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reliefworks/kioskhub/internal/bias"
	"github.com/reliefworks/kioskhub/internal/domain"
)

// BiasRepository backs both sides of the bias signal: the engine's
// read-modify-write rebuild and the provider's read path.
type BiasRepository struct {
	pool *pgxpool.Pool
}

func NewBiasRepository(pool *pgxpool.Pool) *BiasRepository {
	return &BiasRepository{pool: pool}
}

func (r *BiasRepository) ListBiases(ctx context.Context) ([]*domain.EntryBias, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT entry_id, bias, updated_at FROM entry_bias`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.EntryBias
	for rows.Next() {
		var b domain.EntryBias
		if err := rows.Scan(&b.EntryID, &b.Bias, &b.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, &b)
	}
	return results, rows.Err()
}

func (r *BiasRepository) ListEntryIDs(ctx context.Context) ([]string, error) {
	return NewEntryRepository(r.pool).ListEntryIDs(ctx)
}

// FeedbackCounts aggregates lifetime positive/negative feedback per entry.
func (r *BiasRepository) FeedbackCounts(ctx context.Context) (map[string]bias.FeedbackCounts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT entry_id,
		        COUNT(*) FILTER (WHERE label > 0),
		        COUNT(*) FILTER (WHERE label < 0)
		 FROM feedback_log
		 GROUP BY entry_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]bias.FeedbackCounts{}
	for rows.Next() {
		var entryID string
		var c bias.FeedbackCounts
		if err := rows.Scan(&entryID, &c.Positive, &c.Negative); err != nil {
			return nil, err
		}
		counts[entryID] = c
	}
	return counts, rows.Err()
}

func (r *BiasRepository) UpsertBias(ctx context.Context, entryID string, value float64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO entry_bias (entry_id, bias, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (entry_id) DO UPDATE SET bias = EXCLUDED.bias, updated_at = EXCLUDED.updated_at`,
		entryID, value,
	)
	return err
}

func (r *BiasRepository) DeleteBiasesExcept(ctx context.Context, keepEntryIDs []string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM entry_bias WHERE entry_id <> ALL($1)`,
		keepEntryIDs,
	)
	return err
}
