package core

import (
	"math"
	"time"
)

// SchemeProgress is the derived funding state of a savings scheme. It is
// computed on demand from the budgets overlapping the scheme's date range
// and never persisted.
type SchemeProgress struct {
	Progress    int
	TotalIncome Money
	Saved       Money
	TotalSpent  Money
	Active      bool
}

// ComputeProgress derives a scheme's progress from the budgets of the
// months it spans, as of the given instant.
//
// The as-of date is clamped to the scheme's end date, then both are
// normalized to the last day of their months: progress works at calendar
// month granularity because budgets do. Day counts are inclusive on both
// ends. Once enough is saved the scheme is simply complete; before that the
// saved fraction is scaled by the elapsed fraction of the scheme's
// duration, which deliberately rewards saving ahead of schedule.
func ComputeProgress(scheme Scheme, budgetsByMonth map[string]Budget, now time.Time) SchemeProgress {
	var result SchemeProgress

	asOf := now
	if asOf.After(scheme.EndDate) {
		asOf = scheme.EndDate
	}
	end := lastDayOfMonth(scheme.EndDate)
	asOf = lastDayOfMonth(asOf)

	totalDays := wholeDays(scheme.StartDate, end) + 1
	elapsedDays := wholeDays(scheme.StartDate, asOf) + 1

	for cur := firstDayOfMonth(scheme.StartDate); !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		budget, ok := budgetsByMonth[FormatMonth(cur)]
		if !ok {
			continue
		}
		result.Active = true
		monthSpent := budget.TotalSpent()
		result.TotalIncome.Cents += budget.Income.Cents
		result.TotalSpent.Cents += monthSpent.Cents
		result.Saved.Cents += budget.Income.Cents - monthSpent.Cents
	}

	switch {
	case scheme.MinAmount.Cents <= 0 || totalDays <= 0 || elapsedDays <= 0:
		result.Progress = 0
	case result.Saved.Cents >= scheme.MinAmount.Cents:
		result.Progress = 100
	default:
		savedPct := float64(result.Saved.Cents) / float64(scheme.MinAmount.Cents) * 100
		timePct := float64(elapsedDays) / float64(totalDays) * 100
		progress := int(math.Round(savedPct / timePct * 100))
		if progress > 100 {
			progress = 100
		}
		result.Progress = progress
	}

	return result
}

func firstDayOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

func wholeDays(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}
