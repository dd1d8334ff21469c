package allocation

import (
	"gacha-lab/internal/domain"
)

// Evaluate returns the expected value an allocation would produce.
//
// Each category with a positive count is drawn with probability
// count / Σ counts, and its products uniformly within it. Categories absent
// from analysis are skipped. Summation follows the order of analysis, so the
// same inputs always produce the same bits.
func Evaluate(alloc domain.Allocation, analysis []domain.CategoryAnalysis, totalCost float64) float64 {
	total := alloc.Total()
	if total <= 0 {
		return 0
	}

	ev := 0.0
	for _, c := range analysis {
		count, ok := alloc[c.CategoryID]
		if !ok || count <= 0 || len(c.Products) == 0 {
			continue
		}

		selection := float64(count) / float64(total)
		productProbability := 1 / float64(len(c.Products))
		for _, p := range c.Products {
			ev += (p.Price - totalCost) * (selection * productProbability)
		}
	}
	return ev
}
