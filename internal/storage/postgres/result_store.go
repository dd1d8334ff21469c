package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/observability"
	"gacha-lab/internal/storage"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
// Summary columns are denormalised for ad-hoc queries; the full result is
// kept in the payload column.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if result_id exists.
func (s *ResultStore) Insert(ctx context.Context, r *domain.ResultRecord) (err error) {
	if r == nil || r.ResultID == "" || r.Result == nil {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "insert_result", time.Since(start), err) }()

	payload, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("encode result payload: %w", err)
	}

	query := `
		INSERT INTO calculation_results (
			result_id, created_at,
			total_materials, total_material_cost,
			current_expected_value, best_expected_value, risk_reward_expected_value,
			best_allocation_is_current, category_count, payload
		) VALUES (
			$1, $2,
			$3, $4,
			$5, $6, $7,
			$8, $9, $10
		)
	`

	res := r.Result
	_, err = s.pool.Exec(ctx, query,
		r.ResultID, r.CreatedAt,
		res.TotalMaterials, res.TotalMaterialCost,
		res.CurrentExpectedValue, res.BestExpectedValue, res.RiskRewardExpectedValue,
		res.BestAllocationIsCurrent, len(res.CategoryAnalysis), payload,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert calculation result: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByID(ctx context.Context, resultID string) (*domain.ResultRecord, error) {
	query := `
		SELECT result_id, created_at, payload
		FROM calculation_results
		WHERE result_id = $1
	`

	start := time.Now()
	r, err := scanResultRecord(s.pool.QueryRow(ctx, query, resultID))
	observability.RecordDBQuery("postgres", "get_result", time.Since(start), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get calculation result by id: %w", err)
	}
	return r, nil
}

// List retrieves up to limit records, newest first.
func (s *ResultStore) List(ctx context.Context, limit int) ([]*domain.ResultRecord, error) {
	query := `
		SELECT result_id, created_at, payload
		FROM calculation_results
		ORDER BY created_at DESC, result_id ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, args...)
	observability.RecordDBQuery("postgres", "list_results", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list calculation results: %w", err)
	}
	defer rows.Close()

	var records []*domain.ResultRecord
	for rows.Next() {
		r, err := scanResultRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calculation result row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculation result rows: %w", err)
	}

	return records, nil
}

// scanResultRecord scans a single row into a ResultRecord.
func scanResultRecord(row pgx.Row) (*domain.ResultRecord, error) {
	var (
		r       domain.ResultRecord
		payload []byte
	)

	if err := row.Scan(&r.ResultID, &r.CreatedAt, &payload); err != nil {
		return nil, err
	}

	var res domain.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode result payload: %w", err)
	}
	r.Result = &res

	return &r, nil
}
