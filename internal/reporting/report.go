package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is the rendered view of one calculation result.
// Money is rounded to cents, scores and percentages to one decimal place.
type Report struct {
	// Metadata
	ResultID    string    `json:"resultId"`
	GeneratedAt time.Time `json:"generatedAt"`

	Summary Summary `json:"summary"`

	// Plans lists units per category under each plan, in display order.
	Plans []PlanRow `json:"plans"`

	// Rankings, in the order the calculation produced them
	ExpectedRanking []ExpectedRankRow `json:"expectedRanking"`
	RiskRanking     []RiskRankRow     `json:"riskRanking"`
}

// Summary holds the headline numbers of a result.
type Summary struct {
	TotalMaterials    int             `json:"totalMaterials"`
	TotalMaterialCost decimal.Decimal `json:"totalMaterialCost"`

	CurrentExpectedValue    decimal.Decimal `json:"currentExpectedValue"`
	BestExpectedValue       decimal.Decimal `json:"bestExpectedValue"`
	RiskRewardExpectedValue decimal.Decimal `json:"riskRewardExpectedValue"`

	// Gains over the current expected value; RiskRewardGain may be negative.
	BestGain       decimal.Decimal `json:"bestGain"`
	RiskRewardGain decimal.Decimal `json:"riskRewardGain"`

	BestAllocationIsCurrent bool `json:"bestAllocationIsCurrent"`
}

// PlanRow is one category's units under the current, expected and risk-reward plans.
type PlanRow struct {
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Current      int    `json:"current"`
	Expected     int    `json:"expected"`
	RiskReward   int    `json:"riskReward"`
}

// ExpectedRankRow is one row of the expected-value ranking.
type ExpectedRankRow struct {
	Rank            int             `json:"rank"` // 1-based
	CategoryID      string          `json:"categoryId"`
	CategoryName    string          `json:"categoryName"`
	ProductCount    int             `json:"productCount"`
	AvgProductPrice decimal.Decimal `json:"avgProductPrice"`
	ExpectedValue   decimal.Decimal `json:"expectedValue"`
}

// RiskRankRow is one row of the risk-reward ranking.
type RiskRankRow struct {
	Rank            int             `json:"rank"` // 1-based
	CategoryID      string          `json:"categoryId"`
	CategoryName    string          `json:"categoryName"`
	Score           decimal.Decimal `json:"score"`         // 0..200
	BreakevenRate   decimal.Decimal `json:"breakevenRate"` // percent
	ReturnRate      decimal.Decimal `json:"returnRate"`    // percent
	MaxReturn       decimal.Decimal `json:"maxReturn"`     // multiple of the total material cost
	ExpectedValue   decimal.Decimal `json:"expectedValue"`
	ProductCount    int             `json:"productCount"`
	AvgProductPrice decimal.Decimal `json:"avgProductPrice"`
}
