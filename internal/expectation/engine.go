// Package expectation converts per-category material counts and product price
// lists into expected values and category rankings.
//
// X₀ is the single global material cost: every product's payoff is compared
// against the whole system's cost basis, not its own category's.
package expectation

import (
	"errors"
	"sort"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/scoring"
)

// ErrNoMaterials is returned when no category holds any material units.
var ErrNoMaterials = errors.New("no materials in any category")

// Analysis is the output of the expectation engine.
type Analysis struct {
	TotalMaterials    int
	TotalMaterialCost float64 // X₀

	// CurrentExpectedValue weights every eligible category by its share of
	// the material units actually held.
	CurrentExpectedValue float64

	// Categories holds one entry per eligible category in snapshot order.
	// A category is eligible when it has >= 1 material and >= 1 product.
	Categories []domain.CategoryAnalysis

	ExpectedValueRanking []domain.CategoryAnalysis // standalone EV desc
	RiskRewardRanking    []domain.CategoryAnalysis // risk-reward score desc
}

// Analyze runs the expectation engine over a snapshot.
// Categories missing materials or products are excluded, not reported as errors.
func Analyze(snap domain.Snapshot) (*Analysis, error) {
	totalMaterials, totalCost := snap.Totals()
	if totalMaterials == 0 {
		return nil, ErrNoMaterials
	}

	a := &Analysis{
		TotalMaterials:    totalMaterials,
		TotalMaterialCost: totalCost,
	}

	for _, c := range snap.Categories {
		materials := snap.Materials[c.ID]
		products := snap.Products[c.ID]
		if len(materials) == 0 || len(products) == 0 {
			continue
		}

		units := snap.MaterialUnits(c.ID)
		selection := float64(units) / float64(totalMaterials)
		a.CurrentExpectedValue += weightedExpectedValue(products, totalCost, selection)

		a.Categories = append(a.Categories, analyzeCategory(c, materials, products, units, totalCost))
	}

	a.ExpectedValueRanking = RankByExpectedValue(a.Categories)
	a.RiskRewardRanking = RankByRiskReward(a.Categories)

	return a, nil
}

// analyzeCategory builds the standalone analysis record for one category.
func analyzeCategory(
	c domain.Category,
	materials []domain.Material,
	products []domain.Product,
	units int,
	totalCost float64,
) domain.CategoryAnalysis {
	metrics := scoring.ComputeRiskReward(products, totalCost)

	return domain.CategoryAnalysis{
		CategoryID:      c.ID,
		CategoryName:    c.Name,
		ExpectedValue:   StandaloneExpectedValue(products, totalCost),
		RiskRewardScore: metrics.RiskRewardScore,
		ReturnRate:      metrics.ReturnRate,
		BreakevenRate:   metrics.BreakevenRate,
		MaxReturn:       metrics.MaxReturn,
		AvgMaterialCost: averageMaterialPrice(materials),
		AvgProductPrice: averageProductPrice(products),
		MaterialUnits:   units,
		ProductCount:    len(products),
		Products:        copyProducts(products),
	}
}

// StandaloneExpectedValue treats a category as if it were always drawn:
// Σ (price - X₀) × 1/productCount.
func StandaloneExpectedValue(products []domain.Product, totalCost float64) float64 {
	return weightedExpectedValue(products, totalCost, 1)
}

// weightedExpectedValue sums (price - X₀) × selection × 1/productCount.
func weightedExpectedValue(products []domain.Product, totalCost, selection float64) float64 {
	if len(products) == 0 {
		return 0
	}
	productProbability := 1 / float64(len(products))
	ev := 0.0
	for _, p := range products {
		ev += (p.Price - totalCost) * (selection * productProbability)
	}
	return ev
}

// RankByExpectedValue returns a copy sorted by standalone EV descending.
// Ties keep their input order.
func RankByExpectedValue(categories []domain.CategoryAnalysis) []domain.CategoryAnalysis {
	ranked := copyAnalysis(categories)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ExpectedValue > ranked[j].ExpectedValue
	})
	return ranked
}

// RankByRiskReward returns a copy sorted by risk-reward score descending.
// Ties keep their input order.
func RankByRiskReward(categories []domain.CategoryAnalysis) []domain.CategoryAnalysis {
	ranked := copyAnalysis(categories)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RiskRewardScore > ranked[j].RiskRewardScore
	})
	return ranked
}

func averageMaterialPrice(materials []domain.Material) float64 {
	if len(materials) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range materials {
		sum += m.Price
	}
	return sum / float64(len(materials))
}

func averageProductPrice(products []domain.Product) float64 {
	if len(products) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range products {
		sum += p.Price
	}
	return sum / float64(len(products))
}

func copyProducts(products []domain.Product) []domain.Product {
	out := make([]domain.Product, len(products))
	copy(out, products)
	return out
}

func copyAnalysis(categories []domain.CategoryAnalysis) []domain.CategoryAnalysis {
	if categories == nil {
		return nil
	}
	out := make([]domain.CategoryAnalysis, len(categories))
	copy(out, categories)
	return out
}
