package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/storage"
)

func testRecord(id string, createdAt int64) *domain.ResultRecord {
	return &domain.ResultRecord{
		ResultID:  id,
		CreatedAt: createdAt,
		Result: &domain.Result{
			Categories:              []domain.Category{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			CurrentExpectedValue:    425,
			CurrentAllocation:       domain.Allocation{"a": 5, "b": 5},
			BestExpectedValue:       710,
			BestAllocation:          domain.Allocation{"a": 8, "b": 2},
			RiskRewardExpectedValue: 710,
			RiskRewardAllocation:    domain.Allocation{"a": 8, "b": 2},
			TotalMaterials:          10,
			TotalMaterialCost:       100,
			CategoryAnalysis: []domain.CategoryAnalysis{
				{CategoryID: "a", CategoryName: "A", ExpectedValue: 900, ProductCount: 1,
					Products: []domain.Product{{ID: "pa", Name: "jackpot", Price: 1000}}},
			},
		},
	}
}

func TestResultStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(pool)
	ctx := context.Background()

	rec := testRecord("r1", 1000)
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.CreatedAt)
	assert.Equal(t, rec.Result, got.Result)
}

func TestResultStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRecord("r1", 1000)))

	err := store.Insert(ctx, testRecord("r1", 2000))
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "got %v", err)
}

func TestResultStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func TestResultStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewResultStore(pool)
	ctx := context.Background()

	for _, r := range []*domain.ResultRecord{
		testRecord("r1", 1000),
		testRecord("r3", 3000),
		testRecord("r2", 2000),
	} {
		require.NoError(t, store.Insert(ctx, r))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r3", all[0].ResultID)
	assert.Equal(t, "r2", all[1].ResultID)
	assert.Equal(t, "r1", all[2].ResultID)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "r3", limited[0].ResultID)
}

func TestResultStore_InvalidInput(t *testing.T) {
	// Validation happens before any query, so no database is needed.
	store := NewResultStore(nil)

	err := store.Insert(context.Background(), &domain.ResultRecord{ResultID: "r1"})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}
