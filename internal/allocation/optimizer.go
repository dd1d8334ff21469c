// Package allocation redistributes a fixed integer budget of material units
// across ranked categories and evaluates the expected value of a plan.
//
// This is a heuristic, not a search: there is no guarantee the result is a
// true optimum, only that it spends the budget exactly and gives every ranked
// category at least one unit.
package allocation

import (
	"errors"
	"fmt"
	"math"

	"gacha-lab/internal/domain"
)

// Optimizer errors.
var (
	ErrUnknownStrategy    = errors.New("unknown allocation strategy")
	ErrInsufficientBudget = errors.New("material budget is smaller than the number of ranked categories")
)

// Risk-reward strategy parameters.
const (
	topShare        = 0.20 // share of ranked categories that receive the aggressive budget
	aggressiveShare = 0.90 // share of the free budget concentrated on the top categories
)

// Optimize builds an allocation for ranking (best first) that spends exactly
// totalMaterials units, with every ranked category receiving at least one.
//
// An empty ranking yields an empty allocation. A budget smaller than the
// ranking is rejected with ErrInsufficientBudget rather than producing
// negative shares.
func Optimize(ranking []domain.CategoryAnalysis, totalMaterials int, strategy domain.Strategy) (domain.Allocation, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	alloc := make(domain.Allocation, len(ranking))
	n := len(ranking)
	if n == 0 {
		return alloc, nil
	}
	if totalMaterials < n {
		return nil, fmt.Errorf("%w: %d units for %d categories", ErrInsufficientBudget, totalMaterials, n)
	}

	// Floor of one unit per category.
	for _, c := range ranking {
		alloc[c.CategoryID] = 1
	}
	remaining := totalMaterials - n

	switch strategy {
	case domain.StrategyExpected:
		distributeExpected(alloc, ranking, remaining)
	case domain.StrategyRiskReward:
		distributeRiskReward(alloc, ranking, remaining)
	}

	settle(alloc, ranking[0].CategoryID, totalMaterials)
	return alloc, nil
}

// distributeExpected spreads remaining units with quadratic rank weights
// ((N-i)/N)², flooring each share.
func distributeExpected(alloc domain.Allocation, ranking []domain.CategoryAnalysis, remaining int) {
	n := len(ranking)

	totalWeight := 0.0
	for i := 0; i < n; i++ {
		totalWeight += quadraticWeight(i, n)
	}

	for i := 0; i < n && remaining > 0; i++ {
		weight := quadraticWeight(i, n)
		alloc[ranking[i].CategoryID] += int(math.Floor(float64(remaining) * (weight / totalWeight)))
	}
}

func quadraticWeight(i, n int) float64 {
	w := float64(n-i) / float64(n)
	return w * w
}

// distributeRiskReward concentrates 90% of the remaining units on the top 20%
// of the ranking with weights 10^(topCount-1-i), and gives the rest to the
// best-scoring category outside the top group.
func distributeRiskReward(alloc domain.Allocation, ranking []domain.CategoryAnalysis, remaining int) {
	n := len(ranking)

	topCount := int(math.Ceil(float64(n) * topShare))
	if topCount < 1 {
		topCount = 1
	}
	top := ranking[:topCount]
	others := ranking[topCount:]

	aggressive := int(math.Floor(float64(remaining) * aggressiveShare))
	conservative := remaining - aggressive

	weights := topWeights(len(top))
	totalWeight := 0.0
	for _, w := range weights {
		totalWeight += w
	}

	for i := 0; i < len(top) && aggressive > 0; i++ {
		weight := weights[i] / totalWeight
		alloc[top[i].CategoryID] += int(math.Floor(float64(aggressive) * weight))
	}

	if len(others) > 0 && conservative > 0 {
		best := others[0]
		for _, c := range others[1:] {
			if c.RiskRewardScore > best.RiskRewardScore {
				best = c
			}
		}
		alloc[best.CategoryID] += conservative
	}
}

// topWeights returns 10^(k-1-i) for i in [0, k). When the largest weight
// overflows float64 the weights are expressed relative to it instead, which
// keeps the same proportions.
func topWeights(k int) []float64 {
	weights := make([]float64, k)
	relative := math.IsInf(math.Pow10(k-1), 1)
	for i := range weights {
		if relative {
			weights[i] = math.Pow10(-i)
		} else {
			weights[i] = math.Pow10(k - 1 - i)
		}
	}
	return weights
}

// settle sweeps any flooring remainder onto the top-ranked category so the
// allocation sums to exactly totalMaterials.
// Floating-point shares can in rare cases overshoot by a unit; the surplus is
// taken back from the same category, which always holds the largest share.
func settle(alloc domain.Allocation, topID string, totalMaterials int) {
	diff := totalMaterials - alloc.Total()
	if diff == 0 {
		return
	}
	if diff < 0 && alloc[topID]+diff < 1 {
		return
	}
	alloc[topID] += diff
}
