package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShelterConfigRepository stores the structured shelter configuration as a
// single versioned JSONB document.
type ShelterConfigRepository struct {
	pool *pgxpool.Pool
}

func NewShelterConfigRepository(pool *pgxpool.Pool) *ShelterConfigRepository {
	return &ShelterConfigRepository{pool: pool}
}

// LoadConfig returns the latest published configuration, or an empty map when
// none has been published yet.
func (r *ShelterConfigRepository) LoadConfig(ctx context.Context) (map[string]any, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT config FROM shelter_config ORDER BY published_at DESC LIMIT 1`,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	values := map[string]any{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("malformed shelter config row: %w", err)
	}
	return values, nil
}

// SaveConfig publishes a new configuration version. Old versions are kept for
// audit; reads always take the latest.
func (r *ShelterConfigRepository) SaveConfig(ctx context.Context, values map[string]any) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode shelter config: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO shelter_config (config, published_at) VALUES ($1, $2)`,
		raw, time.Now().UTC(),
	)
	return err
}
