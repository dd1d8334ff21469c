package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RenderMarkdown renders the report as Markdown.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Gacha Allocation Report\n\n")
	if r.ResultID != "" {
		sb.WriteString(fmt.Sprintf("Result: %s\n", r.ResultID))
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Materials | %d |\n", s.TotalMaterials))
	sb.WriteString(fmt.Sprintf("| Total Material Cost | %s |\n", s.TotalMaterialCost.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Current Expected Value | %s |\n", s.CurrentExpectedValue.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Best Expected Value | %s (%s) |\n",
		s.BestExpectedValue.StringFixed(2), signed(s.BestGain)))
	sb.WriteString(fmt.Sprintf("| Risk-Reward Expected Value | %s (%s) |\n",
		s.RiskRewardExpectedValue.StringFixed(2), signed(s.RiskRewardGain)))
	sb.WriteString("\n")
	if s.BestAllocationIsCurrent {
		sb.WriteString("The optimized plan scored below the current allocation; the current allocation is kept as the best plan.\n\n")
	}

	// Plans
	sb.WriteString("## Allocation Plans\n\n")
	if len(r.Plans) > 0 {
		sb.WriteString("| Category | Current | Expected | Risk-Reward |\n")
		sb.WriteString("|----------|---------|----------|-------------|\n")
		for _, p := range r.Plans {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d |\n",
				cell(p.CategoryName), p.Current, p.Expected, p.RiskReward))
		}
	} else {
		sb.WriteString("No allocation available.\n")
	}
	sb.WriteString("\n")

	// Expected-value ranking
	sb.WriteString("## Expected Value Ranking\n\n")
	if len(r.ExpectedRanking) > 0 {
		sb.WriteString("| # | Category | Products | Avg Product Price | Expected Value |\n")
		sb.WriteString("|---|----------|----------|-------------------|----------------|\n")
		for _, e := range r.ExpectedRanking {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %s |\n",
				e.Rank, cell(e.CategoryName), e.ProductCount,
				e.AvgProductPrice.StringFixed(2), e.ExpectedValue.StringFixed(2)))
		}
	} else {
		sb.WriteString("No ranking available.\n")
	}
	sb.WriteString("\n")

	// Risk-reward ranking
	sb.WriteString("## Risk-Reward Ranking\n\n")
	if len(r.RiskRanking) > 0 {
		sb.WriteString("| # | Category | Score | Breakeven % | Avg Return % | Max Return | Expected Value |\n")
		sb.WriteString("|---|----------|-------|-------------|--------------|------------|----------------|\n")
		for _, e := range r.RiskRanking {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %sx | %s |\n",
				e.Rank, cell(e.CategoryName), e.Score.StringFixed(1),
				e.BreakevenRate.StringFixed(1), e.ReturnRate.StringFixed(1),
				e.MaxReturn.StringFixed(1), e.ExpectedValue.StringFixed(2)))
		}
	} else {
		sb.WriteString("No ranking available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// signed formats a gain with an explicit sign.
func signed(d decimal.Decimal) string {
	if d.Sign() >= 0 {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

// cell escapes pipes so user-entered names cannot break a table row.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
