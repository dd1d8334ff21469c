package domain

// Result is everything the calculation core hands to the presentation layer.
type Result struct {
	// Categories echoes the snapshot's categories in display order.
	Categories []Category `json:"categories"`

	CurrentExpectedValue float64    `json:"currentExpectedValue"`
	CurrentAllocation    Allocation `json:"currentAllocation"`

	BestExpectedValue float64    `json:"bestExpectedValue"`
	BestAllocation    Allocation `json:"bestAllocation"`
	// BestAllocationIsCurrent is set when the expected-value plan scored below
	// the current allocation and was replaced by it.
	BestAllocationIsCurrent bool `json:"bestAllocationIsCurrent"`

	RiskRewardExpectedValue float64    `json:"riskRewardExpectedValue"`
	RiskRewardAllocation    Allocation `json:"riskRewardAllocation"`

	TotalMaterials    int     `json:"totalMaterials"`
	TotalMaterialCost float64 `json:"totalMaterialCost"`

	CategoryAnalysis   []CategoryAnalysis `json:"categoryAnalysis"`   // sorted by standalone EV desc
	RiskRewardAnalysis []CategoryAnalysis `json:"riskRewardAnalysis"` // sorted by risk-reward score desc
}

// BestGain returns how much the expected-value plan improves on the current allocation.
// Never negative.
func (r *Result) BestGain() float64 {
	return r.BestExpectedValue - r.CurrentExpectedValue
}

// RiskRewardGain returns the risk-reward plan's EV minus the current EV.
// May be negative: the risk-reward plan has no floor at the current value.
func (r *Result) RiskRewardGain() float64 {
	return r.RiskRewardExpectedValue - r.CurrentExpectedValue
}

