package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01", true},
		{"2024-12", true},
		{" 2024-06 ", true},
		{"2024-13", false},
		{"2024-1", false},
		{"January", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseMonth(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ParseMonth(%q) unexpected error: %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ParseMonth(%q) expected error", tc.in)
			} else if !errors.Is(err, ErrInvalidMonth) {
				t.Errorf("ParseMonth(%q) error = %v, want ErrInvalidMonth", tc.in, err)
			}
		}
	}
}

func TestParseISODate(t *testing.T) {
	full, err := ParseISODate("2024-03-15")
	if err != nil {
		t.Fatalf("full date: %v", err)
	}
	if full.Day() != 15 {
		t.Errorf("day = %d, want 15", full.Day())
	}

	bare, err := ParseISODate("2024-03")
	if err != nil {
		t.Fatalf("bare month: %v", err)
	}
	if bare.Day() != 1 || bare.Month() != time.March {
		t.Errorf("bare month parsed as %v, want first of March", bare)
	}

	if _, err := ParseISODate("15/03/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestBudgetValidate(t *testing.T) {
	valid := Budget{
		Month:  "2024-01",
		Amount: Money{Cents: 50000},
		Income: Money{Cents: 100000},
		Categories: map[string]CategoryAllocation{
			"Food": {Budget: Money{Cents: 10000}},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}

	badMonth := valid
	badMonth.Month = "Jan 2024"
	if err := badMonth.Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("bad month error = %v, want ErrInvalidMonth", err)
	}

	noCategories := valid
	noCategories.Categories = nil
	if err := noCategories.Validate(); !errors.Is(err, ErrNoCategories) {
		t.Errorf("no categories error = %v, want ErrNoCategories", err)
	}

	negative := valid
	negative.Categories = map[string]CategoryAllocation{
		"Food": {Budget: Money{Cents: -1}},
	}
	if err := negative.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative allocation error = %v, want ErrInvalidAmount", err)
	}
}

func TestBudgetTotalSpent(t *testing.T) {
	b := Budget{
		Categories: map[string]CategoryAllocation{
			"Food": {Budget: Money{Cents: 10000}, Spent: Money{Cents: 4000}},
			"Rent": {Budget: Money{Cents: 50000}, Spent: Money{Cents: 50000}},
			"Fun":  {Budget: Money{Cents: 2000}},
		},
	}
	if got := b.TotalSpent().Cents; got != 54000 {
		t.Errorf("TotalSpent = %d, want 54000", got)
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{Month: "2024-01", Day: 15, Category: "Food", Amount: Money{Cents: 4000}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"day too low", func(e *Expense) { e.Day = 0 }, ErrInvalidDate},
		{"day too high", func(e *Expense) { e.Day = 32 }, ErrInvalidDate},
		{"zero amount", func(e *Expense) { e.Amount.Cents = 0 }, ErrInvalidAmount},
		{"blank category", func(e *Expense) { e.Category = "  " }, ErrEmptyCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid
			tc.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSchemeValidate(t *testing.T) {
	start, _ := time.Parse("2006-01-02", "2024-01-01")
	end, _ := time.Parse("2006-01-02", "2024-06-30")
	valid := Scheme{StartDate: start, EndDate: end, MinAmount: Money{Cents: 50000}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid scheme rejected: %v", err)
	}

	flipped := valid
	flipped.StartDate, flipped.EndDate = end, start
	if err := flipped.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("flipped range error = %v, want ErrInvalidDate", err)
	}

	free := valid
	free.MinAmount.Cents = 0
	if err := free.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero target error = %v, want ErrInvalidAmount", err)
	}
}
