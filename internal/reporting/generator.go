package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/storage"
)

// ErrNoResult is returned when there is no result to report on.
var ErrNoResult = errors.New("reporting: no result")

// Generator produces reports from calculation results.
type Generator struct {
	results storage.ResultStore
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
// results may be nil when reports are only built with FromResult.
func NewGenerator(results storage.ResultStore) *Generator {
	return &Generator{
		results: results,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads an archived result and builds its report.
func (g *Generator) Generate(ctx context.Context, resultID string) (*Report, error) {
	if g.results == nil {
		return nil, fmt.Errorf("generate %s: %w", resultID, ErrNoResult)
	}

	rec, err := g.results.GetByID(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", resultID, err)
	}

	return g.FromResult(rec.ResultID, rec.Result)
}

// FromResult builds a report from an in-memory result.
func (g *Generator) FromResult(resultID string, res *domain.Result) (*Report, error) {
	if res == nil {
		return nil, ErrNoResult
	}

	return &Report{
		ResultID:        resultID,
		GeneratedAt:     g.now(),
		Summary:         generateSummary(res),
		Plans:           generatePlans(res),
		ExpectedRanking: generateExpectedRanking(res),
		RiskRanking:     generateRiskRanking(res),
	}, nil
}

func generateSummary(res *domain.Result) Summary {
	return Summary{
		TotalMaterials:          res.TotalMaterials,
		TotalMaterialCost:       money(res.TotalMaterialCost),
		CurrentExpectedValue:    money(res.CurrentExpectedValue),
		BestExpectedValue:       money(res.BestExpectedValue),
		RiskRewardExpectedValue: money(res.RiskRewardExpectedValue),
		BestGain:                money(res.BestGain()),
		RiskRewardGain:          money(res.RiskRewardGain()),
		BestAllocationIsCurrent: res.BestAllocationIsCurrent,
	}
}

// generatePlans lists every category that holds units under at least one plan.
func generatePlans(res *domain.Result) []PlanRow {
	var rows []PlanRow
	for _, c := range res.Categories {
		row := PlanRow{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Current:      res.CurrentAllocation[c.ID],
			Expected:     res.BestAllocation[c.ID],
			RiskReward:   res.RiskRewardAllocation[c.ID],
		}
		if row.Current == 0 && row.Expected == 0 && row.RiskReward == 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func generateExpectedRanking(res *domain.Result) []ExpectedRankRow {
	rows := make([]ExpectedRankRow, len(res.CategoryAnalysis))
	for i, c := range res.CategoryAnalysis {
		rows[i] = ExpectedRankRow{
			Rank:            i + 1,
			CategoryID:      c.CategoryID,
			CategoryName:    c.CategoryName,
			ProductCount:    c.ProductCount,
			AvgProductPrice: money(c.AvgProductPrice),
			ExpectedValue:   money(c.ExpectedValue),
		}
	}
	return rows
}

func generateRiskRanking(res *domain.Result) []RiskRankRow {
	rows := make([]RiskRankRow, len(res.RiskRewardAnalysis))
	for i, c := range res.RiskRewardAnalysis {
		rows[i] = RiskRankRow{
			Rank:            i + 1,
			CategoryID:      c.CategoryID,
			CategoryName:    c.CategoryName,
			Score:           tenths(c.RiskRewardScore),
			BreakevenRate:   tenths(c.BreakevenRate),
			ReturnRate:      tenths(c.ReturnRate),
			MaxReturn:       tenths(c.MaxReturn),
			ExpectedValue:   money(c.ExpectedValue),
			ProductCount:    c.ProductCount,
			AvgProductPrice: money(c.AvgProductPrice),
		}
	}
	return rows
}

func money(v float64) decimal.Decimal {
	return round(v, 2)
}

func tenths(v float64) decimal.Decimal {
	return round(v, 1)
}

// round converts v to a decimal; NaN and infinities become zero.
func round(v float64, places int32) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(places)
}
