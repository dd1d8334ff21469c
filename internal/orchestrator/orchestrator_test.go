package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/observability"
	"gacha-lab/internal/storage/memory"
	"gacha-lab/internal/workspace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func abSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Categories: []domain.Category{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		Materials: map[string][]domain.Material{
			"a": {{ID: "ma", Name: "coin", Price: 10, Count: 5}},
			"b": {{ID: "mb", Name: "coin", Price: 10, Count: 5}},
		},
		Products: map[string][]domain.Product{
			"a": {{ID: "pa", Name: "jackpot", Price: 1000}},
			"b": {{ID: "pb", Name: "dud", Price: 50}},
		},
	}
}

// concentratedSnapshot already holds 98% of its units in the only good
// category, so the quadratic plan spreads units away from it and scores lower.
func concentratedSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Categories: []domain.Category{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}},
		Materials: map[string][]domain.Material{
			"a": {{ID: "ma", Price: 1, Count: 98}},
			"b": {{ID: "mb", Price: 1, Count: 1}},
			"c": {{ID: "mc", Price: 1, Count: 1}},
		},
		Products: map[string][]domain.Product{
			"a": {{ID: "pa", Price: 1000}},
			"b": {{ID: "pb", Price: 1}},
			"c": {{ID: "pc", Price: 1}},
		},
	}
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics("test", prometheus.NewRegistry())
}

func TestCompute_TwoCategoryScenario(t *testing.T) {
	res, err := Compute(abSnapshot())
	require.NoError(t, err)

	assert.Equal(t, 10, res.TotalMaterials)
	assert.Equal(t, 100.0, res.TotalMaterialCost)
	assert.InDelta(t, 425.0, res.CurrentExpectedValue, 1e-9)
	assert.Equal(t, domain.Allocation{"a": 5, "b": 5}, res.CurrentAllocation)

	if diff := cmp.Diff(domain.Allocation{"a": 8, "b": 2}, res.BestAllocation); diff != "" {
		t.Errorf("BestAllocation mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 710.0, res.BestExpectedValue, 1e-9)
	assert.False(t, res.BestAllocationIsCurrent)

	if diff := cmp.Diff(domain.Allocation{"a": 8, "b": 2}, res.RiskRewardAllocation); diff != "" {
		t.Errorf("RiskRewardAllocation mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 710.0, res.RiskRewardExpectedValue, 1e-9)

	require.Len(t, res.CategoryAnalysis, 2)
	assert.Equal(t, "a", res.CategoryAnalysis[0].CategoryID)
	assert.Equal(t, "b", res.CategoryAnalysis[1].CategoryID)
	require.Len(t, res.RiskRewardAnalysis, 2)
	assert.Equal(t, "a", res.RiskRewardAnalysis[0].CategoryID)
	assert.Equal(t, "A", res.Categories[0].Name)
}

func TestCompute_MonotonicityGuard(t *testing.T) {
	snap := concentratedSnapshot()
	res, err := Compute(snap)
	require.NoError(t, err)

	// 0.98×900 + 0.01×(-99) + 0.01×(-99)
	assert.InDelta(t, 880.02, res.CurrentExpectedValue, 1e-9)
	assert.True(t, res.BestAllocationIsCurrent)
	assert.Equal(t, res.CurrentExpectedValue, res.BestExpectedValue)
	assert.Equal(t, domain.Allocation{"a": 98, "b": 1, "c": 1}, res.BestAllocation)
	assert.Equal(t, 0.0, res.BestGain())

	// The risk-reward plan has no such floor.
	assert.Equal(t, domain.Allocation{"a": 88, "b": 11, "c": 1}, res.RiskRewardAllocation)
	assert.InDelta(t, 780.12, res.RiskRewardExpectedValue, 1e-9)
	assert.Less(t, res.RiskRewardGain(), 0.0)
}

func TestCompute_FallbackIncludesExcludedCategories(t *testing.T) {
	snap := concentratedSnapshot()
	snap.Categories = append(snap.Categories, domain.Category{ID: "d", Name: "No products"})
	snap.Materials["d"] = []domain.Material{{ID: "md", Price: 1, Count: 3}}

	res, err := Compute(snap)
	require.NoError(t, err)

	if res.BestAllocationIsCurrent {
		assert.Equal(t, 3, res.BestAllocation["d"])
	}
	assert.Equal(t, 3, res.CurrentAllocation["d"])
	assert.Equal(t, 103, res.TotalMaterials)
	assert.Len(t, res.CategoryAnalysis, 3)
}

func TestCompute_BestNeverBelowCurrent(t *testing.T) {
	snaps := []domain.Snapshot{abSnapshot(), concentratedSnapshot()}
	for _, snap := range snaps {
		res, err := Compute(snap)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.BestExpectedValue, res.CurrentExpectedValue)
		assert.Equal(t, res.TotalMaterials, res.BestAllocation.Total())
		assert.Equal(t, res.TotalMaterials, res.RiskRewardAllocation.Total())
	}
}

func TestCompute_NoMaterials(t *testing.T) {
	snap := domain.Snapshot{
		Categories: []domain.Category{{ID: "a", Name: "A"}},
		Products:   map[string][]domain.Product{"a": {{ID: "p", Price: 10}}},
	}

	res, err := Compute(snap)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrNoMaterials))
}

func TestCompute_Idempotent(t *testing.T) {
	snap := concentratedSnapshot()

	first, err := Compute(snap)
	require.NoError(t, err)
	second, err := Compute(snap)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Compute() not idempotent (-first +second):\n%s", diff)
	}
}

func TestCompute_DoesNotAliasSnapshot(t *testing.T) {
	snap := abSnapshot()
	res, err := Compute(snap)
	require.NoError(t, err)

	res.Categories[0].Name = "changed"
	res.CategoryAnalysis[0].Products[0].Price = 1
	assert.Equal(t, "A", snap.Categories[0].Name)
	assert.Equal(t, 1000.0, snap.Products["a"][0].Price)
}

func TestOrchestrator_Run_Archives(t *testing.T) {
	results := memory.NewResultStore()
	stats := memory.NewCategoryStatStore()
	metrics := newTestMetrics()

	orch := New(Options{
		Metrics:           metrics,
		ResultStore:       results,
		CategoryStatStore: stats,
		Now:               func() time.Time { return time.UnixMilli(1700000000000) },
	})

	ctx := context.Background()
	out, err := orch.Run(ctx, abSnapshot())
	require.NoError(t, err)
	require.NotEmpty(t, out.ResultID)
	assert.True(t, out.Stored)
	assert.Empty(t, out.Errors)

	rec, err := results.GetByID(ctx, out.ResultID)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), rec.CreatedAt)
	assert.InDelta(t, 710.0, rec.Result.BestExpectedValue, 1e-9)

	rows, err := stats.GetByResultID(ctx, out.ResultID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].CategoryID)
	assert.Equal(t, 5, rows[0].CurrentUnits)
	assert.Equal(t, 8, rows[0].ExpectedUnits)
	assert.Equal(t, 8, rows[0].RiskRewardUnits)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CalculationsTotal.WithLabelValues(observability.StatusOK)))
	assert.Equal(t, 285.0, testutil.ToFloat64(metrics.ExpectedValueGain.WithLabelValues("expected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResultsStored.WithLabelValues("results", observability.StatusOK)))
}

func TestOrchestrator_Run_WithoutStores(t *testing.T) {
	orch := New(Options{Metrics: newTestMetrics()})

	out, err := orch.Run(context.Background(), abSnapshot())
	require.NoError(t, err)
	assert.False(t, out.Stored)
	assert.NotNil(t, out.Result)
}

type failingResultStore struct {
	*memory.ResultStore
}

func (failingResultStore) Insert(context.Context, *domain.ResultRecord) error {
	return errors.New("disk full")
}

func TestOrchestrator_Run_ArchiveFailureKeepsResult(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	orch := New(Options{
		Logger:      zap.New(core),
		Metrics:     newTestMetrics(),
		ResultStore: failingResultStore{memory.NewResultStore()},
	})

	out, err := orch.Run(context.Background(), abSnapshot())
	require.NoError(t, err)
	assert.False(t, out.Stored)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "disk full")
	assert.Equal(t, 1, logs.FilterMessage("archive result failed").Len())
}

func TestOrchestrator_Run_NoMaterials(t *testing.T) {
	metrics := newTestMetrics()
	orch := New(Options{Metrics: metrics})

	_, err := orch.Run(context.Background(), domain.Snapshot{})
	assert.True(t, errors.Is(err, ErrNoMaterials))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CalculationsTotal.WithLabelValues(observability.StatusNoMaterials)))
}

func TestOrchestrator_Run_Delay(t *testing.T) {
	orch := New(Options{Metrics: newTestMetrics(), Delay: 20 * time.Millisecond})

	start := time.Now()
	_, err := orch.Run(context.Background(), abSnapshot())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestOrchestrator_Run_DelayCancelled(t *testing.T) {
	metrics := newTestMetrics()
	orch := New(Options{Metrics: metrics, Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := orch.Run(ctx, abSnapshot())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CalculationsTotal.WithLabelValues(observability.StatusCancelled)))
}

func TestOrchestrator_RunWorkspace(t *testing.T) {
	ws := workspace.New()
	a, err := ws.AddCategory("A")
	require.NoError(t, err)
	b, err := ws.AddCategory("B")
	require.NoError(t, err)
	_, err = ws.AddMaterial(a.ID, "coin", 10, 5)
	require.NoError(t, err)
	_, err = ws.AddMaterial(b.ID, "coin", 10, 5)
	require.NoError(t, err)
	_, err = ws.AddProduct(a.ID, "jackpot", 1000)
	require.NoError(t, err)

	orch := New(Options{Metrics: newTestMetrics()})

	// B has no product yet.
	_, err = orch.RunWorkspace(context.Background(), ws)
	assert.True(t, errors.Is(err, workspace.ErrCategoryWithoutProducts))

	_, err = ws.AddProduct(b.ID, "dud", 50)
	require.NoError(t, err)

	out, err := orch.RunWorkspace(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, 8, out.Result.BestAllocation[a.ID])
	assert.InDelta(t, 710.0, out.Result.BestExpectedValue, 1e-9)
}
