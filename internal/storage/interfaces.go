package storage

import (
	"context"

	"gacha-lab/internal/domain"
)

// ResultStore archives computed results.
// Records are append-only; the editable workspace itself is never stored.
type ResultStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if result_id exists
	// and ErrInvalidInput if the record has no ID or no result.
	Insert(ctx context.Context, r *domain.ResultRecord) error

	// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, resultID string) (*domain.ResultRecord, error)

	// List retrieves up to limit records, newest first (created_at DESC, result_id ASC).
	// A non-positive limit returns every record.
	List(ctx context.Context, limit int) ([]*domain.ResultRecord, error)
}

// CategoryStatStore provides access to category_stats storage.
type CategoryStatStore interface {
	// InsertBulk adds multiple rows atomically. Fails entire batch on any
	// duplicate (result_id, category_id).
	InsertBulk(ctx context.Context, stats []*domain.CategoryStat) error

	// GetByResultID retrieves the rows of one result, ordered by expected_value DESC, category_id ASC.
	GetByResultID(ctx context.Context, resultID string) ([]*domain.CategoryStat, error)

	// GetByCategoryName retrieves the history of a category across results,
	// ordered by created_at ASC, result_id ASC.
	GetByCategoryName(ctx context.Context, name string) ([]*domain.CategoryStat, error)
}
