// Package scoring implements the risk-reward heuristic used to rank categories
// by upside potential rather than by average return.
//
// The score is a hand-tuned composite, not a validated risk metric. Every
// constant below is fixed so scores stay comparable across categories.
package scoring

import (
	"math"
	"sort"

	"gacha-lab/internal/domain"
)

// Product multiples (price / X₀) that count as high and extreme returns.
const (
	highReturnMultiple    = 3.0
	extremeReturnMultiple = 5.0
)

// Normalisation divisors. Each bonus is divided and clamped to [0, 1].
const (
	normAvgReturn     = 5.0
	normMaxReturn     = 200.0
	normHighReturn    = 2.0
	normExtremeReturn = 5.0
	normVariance      = 10.0
	normSkewness      = 20.0
)

// Component weights (sum to 1.00).
const (
	weightBreakeven     = 0.15
	weightAvgReturn     = 0.10
	weightMaxReturn     = 0.25
	weightHighReturn    = 0.20
	weightExtremeReturn = 0.15
	weightVariance      = 0.08
	weightSkewness      = 0.07
)

const (
	maxReturnCap       = 100.0 // multiples above this stop earning max-return bonus
	topShare           = 0.20  // share of best returns averaged for skewness
	consecutiveFactor  = 0.1
	maxRiskRewardScore = 200.0
)

// ComputeRiskReward scores a category's payout distribution against the
// global cost basis totalCost (X₀).
//
// An empty product list, or a non-positive cost basis, yields all-zero metrics.
func ComputeRiskReward(products []domain.Product, totalCost float64) domain.RiskRewardMetrics {
	n := len(products)
	if n == 0 || totalCost <= 0 {
		return domain.RiskRewardMetrics{}
	}

	returns := make([]float64, n)
	multipliers := make([]float64, n)
	profitable, high, extreme := 0, 0, 0
	for i, p := range products {
		returns[i] = math.Max(0, (p.Price-totalCost)/totalCost)
		multipliers[i] = p.Price / totalCost

		if p.Price >= totalCost {
			profitable++
		}
		if multipliers[i] > highReturnMultiple {
			high++
		}
		if multipliers[i] > extremeReturnMultiple {
			extreme++
		}
	}

	breakevenRate := float64(profitable) / float64(n)

	avgReturn := computeMean(returns)

	maxReturn := computeMax(multipliers)
	maxReturnBonus := math.Pow(math.Min(maxReturn, maxReturnCap), 1.5)

	highReturnRate := float64(high) / float64(n)
	highReturnBonus := math.Pow(highReturnRate, 0.7) * 2

	extremeReturnRate := float64(extreme) / float64(n)
	extremeReturnBonus := math.Pow(extremeReturnRate, 0.5) * 5

	returnVariance := computePopulationVariance(returns, avgReturn)
	varianceBonus := math.Sqrt(returnVariance) * 3

	skewnessBonus := math.Pow(computeTopShareMean(returns, topShare), 1.2)

	consecutiveBonus := math.Pow(float64(computeMaxExtremeRun(products, totalCost)), 1.5)

	baseScore := clamp01(breakevenRate)*weightBreakeven +
		clamp01(avgReturn/normAvgReturn)*weightAvgReturn +
		clamp01(maxReturnBonus/normMaxReturn)*weightMaxReturn +
		clamp01(highReturnBonus/normHighReturn)*weightHighReturn +
		clamp01(extremeReturnBonus/normExtremeReturn)*weightExtremeReturn +
		clamp01(varianceBonus/normVariance)*weightVariance +
		clamp01(skewnessBonus/normSkewness)*weightSkewness

	finalScore := baseScore * (1 + consecutiveBonus*consecutiveFactor)

	return domain.RiskRewardMetrics{
		RiskRewardScore:   math.Min(finalScore*100, maxRiskRewardScore),
		ReturnRate:        avgReturn * 100,
		BreakevenRate:     breakevenRate * 100,
		MaxReturn:         maxReturn,
		ReturnVariance:    returnVariance,
		ExtremeReturnRate: extremeReturnRate * 100,
	}
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func computeMax(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// computePopulationVariance uses the n denominator.
// Fewer than 2 values have no spread and return 0.
func computePopulationVariance(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(n)
}

// computeTopShareMean averages the best ceil(share·n) values (at least one).
func computeTopShareMean(values []float64, share float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	k := int(math.Ceil(float64(n) * share))
	if k < 1 {
		k = 1
	}
	sum := 0.0
	for _, v := range sorted[:k] {
		sum += v
	}
	return sum / float64(k)
}

// computeMaxExtremeRun finds the longest streak of extreme-return products
// when products are ordered by price descending.
func computeMaxExtremeRun(products []domain.Product, totalCost float64) int {
	sorted := make([]domain.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price > sorted[j].Price
	})

	maxStreak := 0
	currentStreak := 0
	for _, p := range sorted {
		if p.Price/totalCost > extremeReturnMultiple {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
