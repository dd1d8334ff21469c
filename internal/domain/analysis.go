package domain

// RiskRewardMetrics is the output of the risk-reward heuristic for one category.
// Rates are reported as percentages.
type RiskRewardMetrics struct {
	RiskRewardScore   float64 `json:"riskRewardScore"`   // composite score in [0, 200]
	ReturnRate        float64 `json:"returnRate"`        // mean clamped return × 100
	BreakevenRate     float64 `json:"breakevenRate"`     // % of products priced >= X₀
	MaxReturn         float64 `json:"maxReturn"`         // highest price / X₀ multiple
	ReturnVariance    float64 `json:"returnVariance"`    // population variance of clamped returns
	ExtremeReturnRate float64 `json:"extremeReturnRate"` // % of products priced > 5×X₀
}

// CategoryAnalysis describes one eligible category (>= 1 material and >= 1 product).
type CategoryAnalysis struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`

	// ExpectedValue is the standalone EV: Σ (price - X₀) / productCount,
	// as if this category were always drawn. It is the ranking key, not a
	// contribution to the current expected value.
	ExpectedValue float64 `json:"expectedValue"`

	RiskRewardScore float64 `json:"riskRewardScore"`
	ReturnRate      float64 `json:"returnRate"`
	BreakevenRate   float64 `json:"breakevenRate"`
	MaxReturn       float64 `json:"maxReturn"`

	AvgMaterialCost float64   `json:"avgMaterialCost"` // mean unit price, not weighted by count
	AvgProductPrice float64   `json:"avgProductPrice"`
	MaterialUnits   int       `json:"materialUnits"`
	ProductCount    int       `json:"productCount"`
	Products        []Product `json:"products"`
}
