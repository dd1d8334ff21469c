package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/orchestrator"
	"gacha-lab/internal/storage"
	"gacha-lab/internal/storage/memory"
)

var fixedTime = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func setupTestResult(t *testing.T) *domain.Result {
	t.Helper()

	snap := domain.Snapshot{
		Categories: []domain.Category{
			{ID: "a", Name: "Limited | Banner"},
			{ID: "b", Name: "Standard"},
			{ID: "c", Name: "Empty"},
		},
		Materials: map[string][]domain.Material{
			"a": {{ID: "ma", Name: "gem", Price: 10, Count: 5}},
			"b": {{ID: "mb", Name: "gem", Price: 10, Count: 5}},
		},
		Products: map[string][]domain.Product{
			"a": {{ID: "pa", Name: "jackpot", Price: 1000}},
			"b": {{ID: "pb", Name: "dud", Price: 50}},
		},
	}

	res, err := orchestrator.Compute(snap)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	return res
}

func newTestGenerator() *Generator {
	return NewGenerator(nil).WithClock(func() time.Time { return fixedTime })
}

func TestFromResult_Summary(t *testing.T) {
	report, err := newTestGenerator().FromResult("r1", setupTestResult(t))
	if err != nil {
		t.Fatalf("FromResult failed: %v", err)
	}

	if report.ResultID != "r1" {
		t.Errorf("Expected ResultID r1, got %s", report.ResultID)
	}
	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected GeneratedAt %v, got %v", fixedTime, report.GeneratedAt)
	}

	s := report.Summary
	if s.TotalMaterials != 10 {
		t.Errorf("Expected TotalMaterials 10, got %d", s.TotalMaterials)
	}
	checks := map[string]string{
		"TotalMaterialCost":       s.TotalMaterialCost.StringFixed(2),
		"CurrentExpectedValue":    s.CurrentExpectedValue.StringFixed(2),
		"BestExpectedValue":       s.BestExpectedValue.StringFixed(2),
		"RiskRewardExpectedValue": s.RiskRewardExpectedValue.StringFixed(2),
		"BestGain":                s.BestGain.StringFixed(2),
		"RiskRewardGain":          s.RiskRewardGain.StringFixed(2),
	}
	want := map[string]string{
		"TotalMaterialCost":       "100.00",
		"CurrentExpectedValue":    "425.00",
		"BestExpectedValue":       "710.00",
		"RiskRewardExpectedValue": "710.00",
		"BestGain":                "285.00",
		"RiskRewardGain":          "285.00",
	}
	for field, got := range checks {
		if got != want[field] {
			t.Errorf("Expected %s %s, got %s", field, want[field], got)
		}
	}
	if s.BestAllocationIsCurrent {
		t.Error("BestAllocationIsCurrent should be false")
	}
}

func TestFromResult_Plans(t *testing.T) {
	report, err := newTestGenerator().FromResult("r1", setupTestResult(t))
	if err != nil {
		t.Fatalf("FromResult failed: %v", err)
	}

	// "Empty" holds no units under any plan and is left out.
	if len(report.Plans) != 2 {
		t.Fatalf("Expected 2 plan rows, got %d", len(report.Plans))
	}

	a := report.Plans[0]
	if a.CategoryName != "Limited | Banner" || a.Current != 5 || a.Expected != 8 || a.RiskReward != 8 {
		t.Errorf("Unexpected plan row for a: %+v", a)
	}
	b := report.Plans[1]
	if b.CategoryName != "Standard" || b.Current != 5 || b.Expected != 2 || b.RiskReward != 2 {
		t.Errorf("Unexpected plan row for b: %+v", b)
	}
}

func TestFromResult_Rankings(t *testing.T) {
	report, err := newTestGenerator().FromResult("r1", setupTestResult(t))
	if err != nil {
		t.Fatalf("FromResult failed: %v", err)
	}

	if len(report.ExpectedRanking) != 2 {
		t.Fatalf("Expected 2 expected-value rows, got %d", len(report.ExpectedRanking))
	}
	top := report.ExpectedRanking[0]
	if top.Rank != 1 || top.CategoryID != "a" {
		t.Errorf("Expected a ranked first, got %+v", top)
	}
	if top.ExpectedValue.StringFixed(2) != "900.00" {
		t.Errorf("Expected EV 900.00, got %s", top.ExpectedValue.StringFixed(2))
	}
	if top.AvgProductPrice.StringFixed(2) != "1000.00" || top.ProductCount != 1 {
		t.Errorf("Unexpected product stats: %+v", top)
	}
	if got := report.ExpectedRanking[1].ExpectedValue.StringFixed(2); got != "-50.00" {
		t.Errorf("Expected EV -50.00 for b, got %s", got)
	}

	if len(report.RiskRanking) != 2 {
		t.Fatalf("Expected 2 risk rows, got %d", len(report.RiskRanking))
	}
	risky := report.RiskRanking[0]
	if risky.CategoryID != "a" {
		t.Errorf("Expected a ranked first by risk, got %s", risky.CategoryID)
	}
	if risky.Score.StringFixed(1) != "75.7" {
		t.Errorf("Expected score 75.7, got %s", risky.Score.StringFixed(1))
	}
	if risky.BreakevenRate.StringFixed(1) != "100.0" {
		t.Errorf("Expected breakeven 100.0, got %s", risky.BreakevenRate.StringFixed(1))
	}
	if risky.ReturnRate.StringFixed(1) != "900.0" {
		t.Errorf("Expected return rate 900.0, got %s", risky.ReturnRate.StringFixed(1))
	}
	if risky.MaxReturn.StringFixed(1) != "10.0" {
		t.Errorf("Expected max return 10.0, got %s", risky.MaxReturn.StringFixed(1))
	}
	if got := report.RiskRanking[1].Score.StringFixed(1); got != "0.0" {
		t.Errorf("Expected score 0.0 for b, got %s", got)
	}
}

func TestFromResult_NilResult(t *testing.T) {
	_, err := newTestGenerator().FromResult("r1", nil)
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("Expected ErrNoResult, got %v", err)
	}
}

func TestGenerate_FromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewResultStore()
	rec := &domain.ResultRecord{ResultID: "stored", CreatedAt: 1, Result: setupTestResult(t)}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	generator := NewGenerator(store).WithClock(func() time.Time { return fixedTime })
	report, err := generator.Generate(ctx, "stored")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.ResultID != "stored" {
		t.Errorf("Expected ResultID stored, got %s", report.ResultID)
	}

	_, err = generator.Generate(ctx, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGenerate_WithoutStore(t *testing.T) {
	_, err := newTestGenerator().Generate(context.Background(), "r1")
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("Expected ErrNoResult, got %v", err)
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	report, err := newTestGenerator().FromResult("r1", setupTestResult(t))
	if err != nil {
		t.Fatalf("FromResult failed: %v", err)
	}

	md := RenderMarkdown(report)

	requiredSections := []string{
		"# Gacha Allocation Report",
		"Result: r1",
		"Generated: 2024-06-15T10:30:00Z",
		"## Summary",
		"## Allocation Plans",
		"## Expected Value Ranking",
		"## Risk-Reward Ranking",
	}
	for _, section := range requiredSections {
		if !strings.Contains(md, section) {
			t.Errorf("Markdown missing section: %s", section)
		}
	}

	rows := []string{
		"| Best Expected Value | 710.00 (+285.00) |",
		`| Limited \| Banner | 5 | 8 | 8 |`,
		"| 2 | Standard | 1 | 50.00 | -50.00 |",
		`| 1 | Limited \| Banner | 75.7 | 100.0 | 900.0 | 10.0x | 900.00 |`,
	}
	for _, row := range rows {
		if !strings.Contains(md, row) {
			t.Errorf("Markdown missing row: %s", row)
		}
	}

	if strings.Contains(md, "current allocation is kept") {
		t.Error("Markdown should not report a fallback")
	}
}

func TestRenderMarkdown_FallbackAndEmpty(t *testing.T) {
	report := &Report{
		GeneratedAt: fixedTime,
		Summary:     Summary{BestAllocationIsCurrent: true},
	}

	md := RenderMarkdown(report)

	if !strings.Contains(md, "current allocation is kept") {
		t.Error("Markdown should report the fallback")
	}
	if !strings.Contains(md, "No allocation available.") {
		t.Error("Markdown should note the missing allocation")
	}
	if strings.Count(md, "No ranking available.") != 2 {
		t.Error("Markdown should note both missing rankings")
	}
	if strings.Contains(md, "Result:") {
		t.Error("Markdown should omit an empty result id")
	}
}

func TestRenderMarkdown_NegativeGain(t *testing.T) {
	res := setupTestResult(t)
	res.RiskRewardExpectedValue = 400

	report, err := newTestGenerator().FromResult("r1", res)
	if err != nil {
		t.Fatalf("FromResult failed: %v", err)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "| Risk-Reward Expected Value | 400.00 (-25.00) |") {
		t.Errorf("Markdown should show a negative gain:\n%s", md)
	}
}

func TestRenderCSV(t *testing.T) {
	report, err := newTestGenerator().FromResult("r1", setupTestResult(t))
	if err != nil {
		t.Fatalf("FromResult failed: %v", err)
	}

	out, err := RenderCSV(report)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")

	// Header + 2 data rows
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "category_id,category_name,current_units") {
		t.Error("CSV header is incorrect")
	}
	if lines[1] != "a,Limited | Banner,5,8,8,1,900.00,1,1000.00,1,75.7,100.0,900.0,10.0" {
		t.Errorf("Unexpected first row: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "b,Standard,5,2,2,2,-50.00") {
		t.Errorf("Unexpected second row: %s", lines[2])
	}
}

func TestRenderCSV_QuotesAndUnranked(t *testing.T) {
	report := &Report{
		Plans: []PlanRow{{CategoryID: "x", CategoryName: "Gems, rare", Current: 3}},
	}

	out, err := RenderCSV(report)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[1] != `x,"Gems, rare",3,0,0,,,,,,,,,` {
		t.Errorf("Unexpected row: %s", lines[1])
	}
}
