package domain

// ResultRecord is an archived calculation result.
// Records are append-only: a result is never edited after it was computed.
type ResultRecord struct {
	ResultID  string  // opaque id from idgen
	CreatedAt int64   // calculation time (ms)
	Result    *Result // full calculation output
}

// CategoryStat is one analysed category of an archived result, flattened for
// analytical queries across many calculations.
type CategoryStat struct {
	ResultID     string
	CategoryID   string
	CategoryName string
	CreatedAt    int64 // ms, same as the owning ResultRecord

	// Analysis
	ExpectedValue   float64 // standalone EV
	RiskRewardScore float64 // 0..200
	ReturnRate      float64 // percent
	BreakevenRate   float64 // percent
	MaxReturn       float64 // raw multiple of X₀
	ProductCount    int

	// Units per plan
	CurrentUnits    int
	ExpectedUnits   int
	RiskRewardUnits int
}

// CategoryStats flattens the analysed categories of a result.
// Rows follow the expected-value ranking.
func (r *ResultRecord) CategoryStats() []*CategoryStat {
	if r.Result == nil {
		return nil
	}

	res := r.Result
	stats := make([]*CategoryStat, 0, len(res.CategoryAnalysis))
	for _, c := range res.CategoryAnalysis {
		stats = append(stats, &CategoryStat{
			ResultID:        r.ResultID,
			CategoryID:      c.CategoryID,
			CategoryName:    c.CategoryName,
			CreatedAt:       r.CreatedAt,
			ExpectedValue:   c.ExpectedValue,
			RiskRewardScore: c.RiskRewardScore,
			ReturnRate:      c.ReturnRate,
			BreakevenRate:   c.BreakevenRate,
			MaxReturn:       c.MaxReturn,
			ProductCount:    c.ProductCount,
			CurrentUnits:    res.CurrentAllocation[c.CategoryID],
			ExpectedUnits:   res.BestAllocation[c.CategoryID],
			RiskRewardUnits: res.RiskRewardAllocation[c.CategoryID],
		})
	}
	return stats
}
