package core

import (
	"testing"
	"time"
)

func testScheme(start, end string, minCents int64) Scheme {
	s, _ := time.Parse("2006-01-02", start)
	e, _ := time.Parse("2006-01-02", end)
	return Scheme{
		ID:        "scheme-1",
		UserID:    "user-1",
		StartDate: s,
		EndDate:   e,
		MinAmount: Money{Cents: minCents},
	}
}

func testBudget(month string, incomeCents, spentCents int64) Budget {
	return Budget{
		Month:  month,
		Income: Money{Cents: incomeCents},
		Categories: map[string]CategoryAllocation{
			"Food": {Budget: Money{Cents: spentCents + 1000}, Spent: Money{Cents: spentCents}},
		},
	}
}

func TestComputeProgress_NoBudgets(t *testing.T) {
	scheme := testScheme("2024-01-01", "2024-03-31", 30000)
	now := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	got := ComputeProgress(scheme, map[string]Budget{}, now)

	if got.Active {
		t.Error("scheme should be inactive with no overlapping budgets")
	}
	if got.Progress != 0 {
		t.Errorf("progress = %d, want 0", got.Progress)
	}
	if got.Saved.Cents != 0 || got.TotalIncome.Cents != 0 {
		t.Errorf("saved = %d, income = %d, want zero", got.Saved.Cents, got.TotalIncome.Cents)
	}
}

func TestComputeProgress_TargetReached(t *testing.T) {
	// Jan and Feb each save 300: 600 total against a 300 target.
	scheme := testScheme("2024-01-01", "2024-03-31", 30000)
	budgets := map[string]Budget{
		"2024-01": testBudget("2024-01", 50000, 20000),
		"2024-02": testBudget("2024-02", 50000, 20000),
	}
	now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	got := ComputeProgress(scheme, budgets, now)

	if !got.Active {
		t.Error("scheme should be active")
	}
	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
	if got.Saved.Cents != 60000 {
		t.Errorf("saved = %d, want 60000", got.Saved.Cents)
	}
	if got.TotalIncome.Cents != 100000 {
		t.Errorf("total income = %d, want 100000", got.TotalIncome.Cents)
	}
	if got.TotalSpent.Cents != 40000 {
		t.Errorf("total spent = %d, want 40000", got.TotalSpent.Cents)
	}
}

func TestComputeProgress_PartialScaledByElapsedTime(t *testing.T) {
	// 91-day scheme, 31 elapsed days after month-end normalization.
	// saved 300 of 1000 -> 30% scaled by 31/91 elapsed -> 88%.
	scheme := testScheme("2024-01-01", "2024-03-31", 100000)
	budgets := map[string]Budget{
		"2024-01": testBudget("2024-01", 40000, 10000),
	}
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	got := ComputeProgress(scheme, budgets, now)

	if got.Progress != 88 {
		t.Errorf("progress = %d, want 88", got.Progress)
	}
	if !got.Active {
		t.Error("scheme should be active")
	}
}

func TestComputeProgress_CappedAt100(t *testing.T) {
	// Nearly funded in the first month: the time scaling would push the
	// figure far past 100, so it is capped.
	scheme := testScheme("2024-01-01", "2024-03-31", 100000)
	budgets := map[string]Budget{
		"2024-01": testBudget("2024-01", 109900, 10000),
	}
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	got := ComputeProgress(scheme, budgets, now)

	if got.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress)
	}
}

func TestComputeProgress_AsOfClampedToEndDate(t *testing.T) {
	// Reading a finished scheme: elapsed days clamp to the full range, so
	// the time fraction is 100% and progress equals the saved fraction.
	scheme := testScheme("2024-01-01", "2024-03-31", 100000)
	budgets := map[string]Budget{
		"2024-01": testBudget("2024-01", 40000, 10000),
	}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	got := ComputeProgress(scheme, budgets, now)

	if got.Progress != 30 {
		t.Errorf("progress = %d, want 30", got.Progress)
	}
}

func TestComputeProgress_OverspentMonthReducesSavings(t *testing.T) {
	scheme := testScheme("2024-01-01", "2024-02-29", 50000)
	budgets := map[string]Budget{
		"2024-01": testBudget("2024-01", 10000, 30000),
	}
	now := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	got := ComputeProgress(scheme, budgets, now)

	if got.Saved.Cents != -20000 {
		t.Errorf("saved = %d, want -20000", got.Saved.Cents)
	}
	// Progress is only capped at the top; overspending drives it negative.
	if got.Progress != -77 {
		t.Errorf("progress = %d, want -77", got.Progress)
	}
}
