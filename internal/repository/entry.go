package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/reliefworks/kioskhub/internal/domain"
	"github.com/reliefworks/kioskhub/internal/pagination"
	"github.com/reliefworks/kioskhub/internal/service"
)

type EntryRepository struct {
	db dbtx
}

func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{db: pool}
}

func NewEntryRepositoryWithTx(tx pgx.Tx) *EntryRepository {
	return &EntryRepository{db: tx}
}

func (r *EntryRepository) Create(ctx context.Context, e *domain.KnowledgeEntry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO entries (id, question, answer, category, tags, enabled, provenance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Question, e.Answer, nullableString(e.Category), e.Tags, e.Enabled, e.Provenance, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, question, answer, category, tags, enabled, provenance, embedding, created_at, updated_at
		 FROM entries WHERE id = $1`,
		id,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// ListEnabledWithEmbeddings returns all enabled entries that already have an
// embedding, in a stable order. This is the corpus cache's read path.
func (r *EntryRepository) ListEnabledWithEmbeddings(ctx context.Context) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question, answer, category, tags, enabled, provenance, embedding, created_at, updated_at
		 FROM entries
		 WHERE enabled = TRUE AND embedding IS NOT NULL
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntryRows(rows)
}

// ListMissingEmbeddings returns enabled entries without a vector, oldest
// first, for the backfill command.
func (r *EntryRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, question, answer, category, tags, enabled, provenance, embedding, created_at, updated_at
		 FROM entries
		 WHERE embedding IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntryRows(rows)
}

func (r *EntryRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.EntryPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, question, answer, category, tags, enabled, provenance, embedding, created_at, updated_at
			 FROM entries
			 WHERE (updated_at, id) < ($1, $2)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, question, answer, category, tags, enabled, provenance, embedding, created_at, updated_at
			 FROM entries
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanEntryRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.EntryPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *EntryRepository) Update(ctx context.Context, e *domain.KnowledgeEntry) error {
	e.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE entries SET question = $1, answer = $2, category = $3, tags = $4, embedding = NULL, updated_at = $5
		 WHERE id = $6`,
		e.Question, e.Answer, nullableString(e.Category), e.Tags, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE entries SET enabled = $1, updated_at = $2 WHERE id = $3`,
		enabled, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM entries WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE entries SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// ListEntryIDs returns every entry ID; the bias engine uses it to prune
// orphan bias rows.
func (r *EntryRepository) ListEntryIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type entryRow interface {
	Scan(dest ...any) error
}

func scanEntry(row entryRow) (*domain.KnowledgeEntry, error) {
	var e domain.KnowledgeEntry
	var category *string
	var embedding *pgvector.Vector
	if err := row.Scan(&e.ID, &e.Question, &e.Answer, &category, &e.Tags, &e.Enabled, &e.Provenance, &embedding, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if category != nil {
		e.Category = *category
	}
	if embedding != nil {
		e.Embedding = embedding.Slice()
	}
	return &e, nil
}

func scanEntryRows(rows pgx.Rows) ([]*domain.KnowledgeEntry, error) {
	var results []*domain.KnowledgeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}
