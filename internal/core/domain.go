package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// CategoryAllocation is one entry of a budget's category map: how much
	// was set aside for the category and how much has been spent from it.
	CategoryAllocation struct {
		Budget Money
		Spent  Money
	}

	// Budget is a user's plan for a single calendar month. Categories keeps
	// insertion order so every session renders the same list.
	Budget struct {
		ID         string
		UserID     string
		Month      string // YYYY-MM, unique per user
		Amount     Money
		Income     Money
		Categories map[string]CategoryAllocation
		Order      []string
		CreatedAt  time.Time
	}

	// Expense is a single spend recorded against a budget's category.
	Expense struct {
		ID        string
		UserID    string
		Month     string
		Day       int
		Category  string
		Amount    Money
		CreatedAt time.Time
	}

	// Scheme is a savings goal over a date range. Its progress is never
	// stored; it is recomputed from the overlapping budgets at read time.
	Scheme struct {
		ID        string
		UserID    string
		StartDate time.Time
		EndDate   time.Time
		MinAmount Money
		CreatedAt time.Time
	}

	Settings struct {
		UserID           string
		AllowBudgetAlert bool
		AllowGoalAlert   bool
		Allow2FA         bool
	}

	User struct {
		ID           string
		Name         string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyCategory   = errors.New("empty category name")
	ErrNoCategories    = errors.New("budget needs at least one category")
	ErrUnknownCategory = errors.New("category not present in budget")
)

const monthLayout = "2006-01"

// ParseMonth validates a YYYY-MM month string.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return t, nil
}

// FormatMonth renders a time as a YYYY-MM month string.
func FormatMonth(t time.Time) string {
	return t.Format(monthLayout)
}

// ParseISODate accepts either a full YYYY-MM-DD date or a bare YYYY-MM
// month, which is how scheme date pickers submit values.
func ParseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(monthLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// TotalSpent sums spent cents across every category of the budget.
func (b Budget) TotalSpent() Money {
	var cents int64
	for _, alloc := range b.Categories {
		cents += alloc.Spent.Cents
	}
	return Money{Cents: cents}
}

// CategoryNames returns the category names in insertion order, falling back
// to map iteration when no explicit order survived storage.
func (b Budget) CategoryNames() []string {
	if len(b.Order) == len(b.Categories) {
		return b.Order
	}
	names := make([]string, 0, len(b.Categories))
	for name := range b.Categories {
		names = append(names, name)
	}
	return names
}

func (b Budget) Validate() error {
	if _, err := ParseMonth(b.Month); err != nil {
		return err
	}
	if err := b.Amount.Validate(); err != nil {
		return fmt.Errorf("budget amount: %w", err)
	}
	if err := b.Income.Validate(); err != nil {
		return fmt.Errorf("budget income: %w", err)
	}
	if len(b.Categories) == 0 {
		return ErrNoCategories
	}
	for name, alloc := range b.Categories {
		if strings.TrimSpace(name) == "" {
			return ErrEmptyCategory
		}
		if err := alloc.Budget.Validate(); err != nil {
			return fmt.Errorf("category %q allocation: %w", name, err)
		}
		if err := alloc.Spent.Validate(); err != nil {
			return fmt.Errorf("category %q spent: %w", name, err)
		}
	}
	return nil
}

func (e Expense) Validate() error {
	if _, err := ParseMonth(e.Month); err != nil {
		return err
	}
	if e.Day < 1 || e.Day > 31 {
		return fmt.Errorf("%w: day %d", ErrInvalidDate, e.Day)
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Scheme) Validate() error {
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return ErrInvalidDate
	}
	if s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("%w: end before start", ErrInvalidDate)
	}
	if s.MinAmount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
