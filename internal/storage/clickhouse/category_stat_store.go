package clickhouse

import (
	"context"
	"fmt"
	"time"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/observability"
	"gacha-lab/internal/storage"
)

// CategoryStatStore implements storage.CategoryStatStore using ClickHouse.
type CategoryStatStore struct {
	conn *Conn
}

// NewCategoryStatStore creates a new CategoryStatStore.
func NewCategoryStatStore(conn *Conn) *CategoryStatStore {
	return &CategoryStatStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CategoryStatStore = (*CategoryStatStore)(nil)

const categoryStatColumns = `
	result_id, category_id, category_name, created_at,
	expected_value, risk_reward_score, return_rate, breakeven_rate, max_return, product_count,
	current_units, expected_units, risk_reward_units
`

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
// MergeTree does not enforce keys, so duplicates are checked before the batch is sent.
func (s *CategoryStatStore) InsertBulk(ctx context.Context, stats []*domain.CategoryStat) (err error) {
	if len(stats) == 0 {
		return nil
	}

	// Check for invalid rows and intra-batch duplicates
	seen := make(map[string]struct{}, len(stats))
	results := make(map[string]struct{})
	for _, st := range stats {
		if st == nil || st.ResultID == "" || st.CategoryID == "" {
			return storage.ErrInvalidInput
		}
		key := st.ResultID + "|" + st.CategoryID
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		results[st.ResultID] = struct{}{}
	}

	start := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "insert_category_stats", time.Since(start), err) }()

	// Check for duplicates against existing rows
	for resultID := range results {
		existing, err := s.categoryIDs(ctx, resultID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, categoryID := range existing {
			if _, dup := seen[resultID+"|"+categoryID]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO category_stats ("+categoryStatColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, st := range stats {
		err = batch.Append(
			st.ResultID, st.CategoryID, st.CategoryName, st.CreatedAt,
			st.ExpectedValue, st.RiskRewardScore, st.ReturnRate, st.BreakevenRate, st.MaxReturn, int64(st.ProductCount),
			int64(st.CurrentUnits), int64(st.ExpectedUnits), int64(st.RiskRewardUnits),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByResultID retrieves the rows of one result, ordered by expected_value DESC.
func (s *CategoryStatStore) GetByResultID(ctx context.Context, resultID string) ([]*domain.CategoryStat, error) {
	query := `
		SELECT ` + categoryStatColumns + `
		FROM category_stats
		WHERE result_id = ?
		ORDER BY expected_value DESC, category_id ASC
	`

	rows, err := s.conn.Query(ctx, query, resultID)
	if err != nil {
		return nil, fmt.Errorf("query by result id: %w", err)
	}
	defer rows.Close()

	return scanCategoryStats(rows)
}

// GetByCategoryName retrieves the history of a category across results, oldest first.
func (s *CategoryStatStore) GetByCategoryName(ctx context.Context, name string) ([]*domain.CategoryStat, error) {
	query := `
		SELECT ` + categoryStatColumns + `
		FROM category_stats
		WHERE category_name = ?
		ORDER BY created_at ASC, result_id ASC
	`

	rows, err := s.conn.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("query by category name: %w", err)
	}
	defer rows.Close()

	return scanCategoryStats(rows)
}

func (s *CategoryStatStore) categoryIDs(ctx context.Context, resultID string) ([]string, error) {
	rows, err := s.conn.Query(ctx, "SELECT category_id FROM category_stats WHERE result_id = ?", resultID)
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

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCategoryStats(rows chRows) ([]*domain.CategoryStat, error) {
	var stats []*domain.CategoryStat

	for rows.Next() {
		var (
			st                                 domain.CategoryStat
			products, current, expected, risky int64
		)
		err := rows.Scan(
			&st.ResultID, &st.CategoryID, &st.CategoryName, &st.CreatedAt,
			&st.ExpectedValue, &st.RiskRewardScore, &st.ReturnRate, &st.BreakevenRate, &st.MaxReturn, &products,
			&current, &expected, &risky,
		)
		if err != nil {
			return nil, fmt.Errorf("scan category stat row: %w", err)
		}
		st.ProductCount = int(products)
		st.CurrentUnits = int(current)
		st.ExpectedUnits = int(expected)
		st.RiskRewardUnits = int(risky)
		stats = append(stats, &st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category stat rows: %w", err)
	}

	return stats, nil
}
