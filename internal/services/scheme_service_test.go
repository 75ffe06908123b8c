package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bilancio/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSchemeService_CreateComputesProgress(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo, nil)
	svc := NewSchemeService(repo, nil)
	svc.now = func() time.Time { return date(2024, time.March, 1) }
	ctx := context.Background()

	// Income 5000.00, spend 2000.00 in each of Jan and Feb.
	for _, month := range []string{"2024-01", "2024-02"} {
		b, err := budgets.CreateBudget(ctx, "user-1", month,
			core.Money{Cents: 300000}, core.Money{Cents: 500000}, []CategoryInput{
				{Name: "Food", Amount: core.Money{Cents: 300000}},
			})
		if err != nil {
			t.Fatalf("create budget %s: %v", month, err)
		}
		if _, _, err := budgets.RecordExpense(ctx, "user-1", b.ID, "Food", core.Money{Cents: 200000}); err != nil {
			t.Fatalf("record expense: %v", err)
		}
	}

	got, err := svc.CreateScheme(ctx, "user-1",
		date(2024, time.January, 1), date(2024, time.December, 31), core.Money{Cents: 300000})
	if err != nil {
		t.Fatalf("create scheme: %v", err)
	}
	if got.Progress.Saved.Cents != 600000 {
		t.Errorf("saved = %d, want 600000", got.Progress.Saved.Cents)
	}
	if got.Progress.Progress != 100 {
		t.Errorf("progress = %d, want 100", got.Progress.Progress)
	}
}

func TestSchemeService_EditAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSchemeService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateScheme(ctx, "user-1",
		date(2024, time.January, 1), date(2024, time.June, 30), core.Money{Cents: 100000})
	if err != nil {
		t.Fatalf("create scheme: %v", err)
	}

	edited, err := svc.EditScheme(ctx, "user-1", created.Scheme.ID,
		date(2024, time.February, 1), date(2024, time.July, 31), core.Money{Cents: 150000})
	if err != nil {
		t.Fatalf("edit scheme: %v", err)
	}
	if edited.Scheme.MinAmount.Cents != 150000 {
		t.Errorf("min amount = %d, want 150000", edited.Scheme.MinAmount.Cents)
	}

	if _, err := svc.EditScheme(ctx, "user-2", created.Scheme.ID,
		date(2024, time.February, 1), date(2024, time.July, 31), core.Money{Cents: 1}); !errors.Is(err, ErrSchemeNotFound) {
		t.Errorf("foreign edit: err = %v, want ErrSchemeNotFound", err)
	}

	if err := svc.DeleteScheme(ctx, "user-1", created.Scheme.ID); err != nil {
		t.Fatalf("delete scheme: %v", err)
	}
	if err := svc.DeleteScheme(ctx, "user-1", created.Scheme.ID); !errors.Is(err, ErrSchemeNotFound) {
		t.Errorf("second delete: err = %v, want ErrSchemeNotFound", err)
	}
}

func TestSchemeService_InvalidRange(t *testing.T) {
	svc := NewSchemeService(newTestRepo(t), nil)
	_, err := svc.CreateScheme(context.Background(), "user-1",
		date(2024, time.June, 1), date(2024, time.January, 1), core.Money{Cents: 100000})
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}

func TestSchemeService_GoalAlertOnCompletion(t *testing.T) {
	repo := newTestRepo(t)
	budgets := NewBudgetService(repo, nil)
	pub := &capturingPublisher{}
	svc := NewSchemeService(repo, pub)
	svc.now = func() time.Time { return date(2024, time.March, 1) }
	ctx := context.Background()

	if _, err := budgets.CreateBudget(ctx, "user-1", "2024-01",
		core.Money{Cents: 100000}, core.Money{Cents: 500000}, []CategoryInput{
			{Name: "Food", Amount: core.Money{Cents: 100000}},
		}); err != nil {
		t.Fatalf("create budget: %v", err)
	}

	created, err := svc.CreateScheme(ctx, "user-1",
		date(2024, time.January, 1), date(2024, time.December, 31), core.Money{Cents: 400000})
	if err != nil {
		t.Fatalf("create scheme: %v", err)
	}
	if created.Progress.Progress != 100 {
		t.Fatalf("progress = %d, want 100", created.Progress.Progress)
	}
	if len(pub.goals) != 1 {
		t.Fatalf("goal alerts = %d, want 1", len(pub.goals))
	}
	if pub.goals[0].SchemeID != created.Scheme.ID || pub.goals[0].SavedCents != 500000 {
		t.Errorf("alert = %+v", pub.goals[0])
	}
}
