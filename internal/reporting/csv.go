package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

var csvHeader = []string{
	"category_id", "category_name",
	"current_units", "expected_units", "risk_reward_units",
	"expected_rank", "expected_value", "product_count", "avg_product_price",
	"risk_rank", "risk_reward_score", "breakeven_rate", "return_rate", "max_return",
}

// RenderCSV renders one row per planned category, in display order.
// Categories outside the rankings leave the analysis columns empty.
func RenderCSV(r *Report) (string, error) {
	expected := make(map[string]ExpectedRankRow, len(r.ExpectedRanking))
	for _, e := range r.ExpectedRanking {
		expected[e.CategoryID] = e
	}
	risk := make(map[string]RiskRankRow, len(r.RiskRanking))
	for _, e := range r.RiskRanking {
		risk[e.CategoryID] = e
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}

	for _, p := range r.Plans {
		row := []string{
			p.CategoryID, p.CategoryName,
			strconv.Itoa(p.Current), strconv.Itoa(p.Expected), strconv.Itoa(p.RiskReward),
		}

		if e, ok := expected[p.CategoryID]; ok {
			row = append(row,
				strconv.Itoa(e.Rank),
				e.ExpectedValue.StringFixed(2),
				strconv.Itoa(e.ProductCount),
				e.AvgProductPrice.StringFixed(2),
			)
		} else {
			row = append(row, "", "", "", "")
		}

		if e, ok := risk[p.CategoryID]; ok {
			row = append(row,
				strconv.Itoa(e.Rank),
				e.Score.StringFixed(1),
				e.BreakevenRate.StringFixed(1),
				e.ReturnRate.StringFixed(1),
				e.MaxReturn.StringFixed(1),
			)
		} else {
			row = append(row, "", "", "", "", "")
		}

		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
