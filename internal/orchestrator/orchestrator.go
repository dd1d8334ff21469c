// Package orchestrator runs a full calculation over a workspace snapshot.
// It coordinates: analysis → expected plan → risk-reward plan → evaluation → archive
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gacha-lab/internal/allocation"
	"gacha-lab/internal/domain"
	"gacha-lab/internal/expectation"
	"gacha-lab/internal/idgen"
	"gacha-lab/internal/observability"
	"gacha-lab/internal/storage"
	"gacha-lab/internal/workspace"
)

// ErrNoMaterials is returned when the snapshot holds no material units at all.
var ErrNoMaterials = expectation.ErrNoMaterials

// Compute is the calculation core: a pure function of the snapshot.
// The only failure is ErrNoMaterials; no partial result is returned with it.
func Compute(snap domain.Snapshot) (*domain.Result, error) {
	analysis, err := expectation.Analyze(snap)
	if err != nil {
		return nil, err
	}
	totalCost := analysis.TotalMaterialCost

	best, err := allocation.Optimize(analysis.ExpectedValueRanking, analysis.TotalMaterials, domain.StrategyExpected)
	if err != nil {
		return nil, fmt.Errorf("expected plan: %w", err)
	}
	bestEV := allocation.Evaluate(best, analysis.ExpectedValueRanking, totalCost)

	current := snap.CurrentAllocation()
	bestIsCurrent := false
	if bestEV < analysis.CurrentExpectedValue {
		best = current.Clone()
		bestEV = analysis.CurrentExpectedValue
		bestIsCurrent = true
	}

	risky, err := allocation.Optimize(analysis.RiskRewardRanking, analysis.TotalMaterials, domain.StrategyRiskReward)
	if err != nil {
		return nil, fmt.Errorf("risk-reward plan: %w", err)
	}
	riskyEV := allocation.Evaluate(risky, analysis.RiskRewardRanking, totalCost)

	categories := make([]domain.Category, len(snap.Categories))
	copy(categories, snap.Categories)

	return &domain.Result{
		Categories:              categories,
		CurrentExpectedValue:    analysis.CurrentExpectedValue,
		CurrentAllocation:       current,
		BestExpectedValue:       bestEV,
		BestAllocation:          best,
		BestAllocationIsCurrent: bestIsCurrent,
		RiskRewardExpectedValue: riskyEV,
		RiskRewardAllocation:    risky,
		TotalMaterials:          analysis.TotalMaterials,
		TotalMaterialCost:       totalCost,
		CategoryAnalysis:        analysis.ExpectedValueRanking,
		RiskRewardAnalysis:      analysis.RiskRewardRanking,
	}, nil
}

// Orchestrator wraps Compute with the calculating delay, logging, metrics
// and the optional result archive.
type Orchestrator struct {
	log     *zap.Logger
	metrics *observability.Metrics

	resultStore storage.ResultStore
	statStore   storage.CategoryStatStore

	delay time.Duration
	now   func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	Logger  *zap.Logger            // nil disables logging
	Metrics *observability.Metrics // nil uses observability.DefaultMetrics

	// Optional archive
	ResultStore       storage.ResultStore
	CategoryStatStore storage.CategoryStatStore

	// Delay holds the calculation back so a "calculating" indicator can render.
	Delay time.Duration

	// Now overrides the clock used for archive timestamps.
	Now func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		log:         opts.Logger,
		metrics:     opts.Metrics,
		resultStore: opts.ResultStore,
		statStore:   opts.CategoryStatStore,
		delay:       opts.Delay,
		now:         opts.Now,
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// RunResult contains results from one orchestrated calculation.
type RunResult struct {
	ResultID string
	Result   *domain.Result
	Stored   bool     // archived in the result store
	Errors   []string // archive failures; the result itself is still valid
}

// Run executes one calculation.
// Phases:
//  1. Wait for the calculating delay (cancellable)
//  2. Compute the result
//  3. Record metrics
//  4. Archive the result and its category rows, if stores are configured
func (o *Orchestrator) Run(ctx context.Context, snap domain.Snapshot) (*RunResult, error) {
	log := o.log.With(zap.Int("categories", len(snap.Categories)))

	// Phase 1: delay
	if o.delay > 0 {
		log.Debug("calculating", zap.Duration("delay", o.delay))
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			o.metrics.RecordCalculation(observability.StatusCancelled, 0, 0, 0)
			return nil, ctx.Err()
		}
	}

	// Phase 2: compute
	start := time.Now()
	res, err := Compute(snap)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, ErrNoMaterials) {
			o.metrics.RecordCalculation(observability.StatusNoMaterials, elapsed, 0, 0)
			log.Info("nothing to calculate", zap.Error(err))
		} else {
			o.metrics.RecordCalculation(observability.StatusError, elapsed, 0, 0)
			log.Error("calculation failed", zap.Error(err))
		}
		return nil, err
	}

	// Phase 3: metrics
	o.metrics.RecordCalculation(observability.StatusOK, elapsed, len(res.CategoryAnalysis), res.TotalMaterials)
	o.metrics.RecordGain(domain.StrategyExpected.String(), res.BestGain())
	o.metrics.RecordGain(domain.StrategyRiskReward.String(), res.RiskRewardGain())
	if res.BestAllocationIsCurrent {
		o.metrics.RecordFallback()
	}

	out := &RunResult{
		ResultID: idgen.New(),
		Result:   res,
	}
	log = log.With(zap.String("result_id", out.ResultID))
	log.Info("calculation complete",
		zap.Int("total_materials", res.TotalMaterials),
		zap.Float64("total_material_cost", res.TotalMaterialCost),
		zap.Float64("current_ev", res.CurrentExpectedValue),
		zap.Float64("best_ev", res.BestExpectedValue),
		zap.Float64("risk_reward_ev", res.RiskRewardExpectedValue),
		zap.Bool("best_is_current", res.BestAllocationIsCurrent),
		zap.Duration("elapsed", elapsed),
	)

	// Phase 4: archive
	o.archive(ctx, log, out)

	return out, nil
}

// RunWorkspace checks that ws may enter the calculate step, then runs on a
// snapshot of it.
func (o *Orchestrator) RunWorkspace(ctx context.Context, ws *workspace.Workspace) (*RunResult, error) {
	if err := ws.ValidateStep(workspace.StepCalculate); err != nil {
		return nil, err
	}
	return o.Run(ctx, ws.Snapshot())
}

func (o *Orchestrator) archive(ctx context.Context, log *zap.Logger, out *RunResult) {
	if o.resultStore == nil && o.statStore == nil {
		return
	}

	rec := &domain.ResultRecord{
		ResultID:  out.ResultID,
		CreatedAt: o.now().UnixMilli(),
		Result:    out.Result,
	}

	if o.resultStore != nil {
		err := o.resultStore.Insert(ctx, rec)
		o.metrics.RecordStore("results", err)
		if err != nil {
			log.Warn("archive result failed", zap.Error(err))
			out.Errors = append(out.Errors, fmt.Sprintf("archive result %s: %v", rec.ResultID, err))
		} else {
			out.Stored = true
		}
	}

	if o.statStore != nil {
		err := o.statStore.InsertBulk(ctx, rec.CategoryStats())
		o.metrics.RecordStore("category_stats", err)
		if err != nil {
			log.Warn("archive category stats failed", zap.Error(err))
			out.Errors = append(out.Errors, fmt.Sprintf("archive category stats %s: %v", rec.ResultID, err))
		}
	}
}
