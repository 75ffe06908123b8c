package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// AlertPublisher pushes alert notifications to the message broker.
// Services treat a nil publisher as alerts disabled.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, alert amqp.BudgetAlert) error
	PublishGoalAlert(ctx context.Context, alert amqp.GoalAlert) error
}

// CategoryInput is one category line of a create or edit budget request.
type CategoryInput struct {
	Name   string
	Amount core.Money
}

// BudgetService owns every budget mutation. Spends against a budget are
// serialized per budget ID so two sessions cannot both pass the remaining
// allocation check before either increment lands.
type BudgetService struct {
	storage *storage.SQLiteRepository
	alerts  AlertPublisher
	locks   *keyedMutex
	now     func() time.Time
}

func NewBudgetService(storage *storage.SQLiteRepository, alerts AlertPublisher) *BudgetService {
	return &BudgetService{
		storage: storage,
		alerts:  alerts,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// CreateBudget creates the user's budget for a month. Each user holds at
// most one budget per month.
func (s *BudgetService) CreateBudget(ctx context.Context, userID, month string, amount, income core.Money, categories []CategoryInput) (core.Budget, error) {
	b := core.Budget{
		ID:        uuid.NewString(),
		UserID:    userID,
		Month:     strings.TrimSpace(month),
		Amount:    amount,
		Income:    income,
		CreatedAt: s.now(),
	}
	b.Categories = make(map[string]core.CategoryAllocation, len(categories))
	for _, c := range categories {
		if _, ok := b.Categories[c.Name]; ok {
			continue
		}
		b.Categories[c.Name] = core.CategoryAllocation{Budget: c.Amount}
		b.Order = append(b.Order, c.Name)
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	exists, err := s.storage.BudgetExistsForMonth(ctx, userID, b.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("check existing budget: %w", err)
	}
	if exists {
		return core.Budget{}, ErrDuplicateMonth
	}

	if err := s.storage.CreateBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

// EditBudget replaces the amount, income and category allocations of an
// existing budget. Spent totals carry over for categories that keep their
// name; renamed or new categories start back at zero.
func (s *BudgetService) EditBudget(ctx context.Context, userID, budgetID string, amount, income core.Money, categories []CategoryInput) (core.Budget, error) {
	s.locks.Lock(budgetID)
	defer s.locks.Unlock(budgetID)

	existing, err := s.getOwnedBudget(ctx, userID, budgetID)
	if err != nil {
		return core.Budget{}, err
	}

	updated := existing
	updated.Amount = amount
	updated.Income = income
	updated.Categories = make(map[string]core.CategoryAllocation, len(categories))
	updated.Order = nil
	for _, c := range categories {
		if _, ok := updated.Categories[c.Name]; ok {
			continue
		}
		alloc := core.CategoryAllocation{Budget: c.Amount}
		if prev, ok := existing.Categories[c.Name]; ok {
			alloc.Spent = prev.Spent
		}
		updated.Categories[c.Name] = alloc
		updated.Order = append(updated.Order, c.Name)
	}
	if err := updated.Validate(); err != nil {
		return core.Budget{}, err
	}

	if err := s.storage.ReplaceBudget(ctx, updated); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.Budget{}, ErrBudgetNotFound
		}
		return core.Budget{}, fmt.Errorf("replace budget: %w", err)
	}
	return updated, nil
}

// RecordExpense spends against one category of a budget. The spend is
// rejected when it would push the category past its allocation.
func (s *BudgetService) RecordExpense(ctx context.Context, userID, budgetID, category string, amount core.Money) (core.Budget, core.Expense, error) {
	if amount.Cents <= 0 {
		return core.Budget{}, core.Expense{}, core.ErrInvalidAmount
	}

	s.locks.Lock(budgetID)
	defer s.locks.Unlock(budgetID)

	b, err := s.getOwnedBudget(ctx, userID, budgetID)
	if err != nil {
		return core.Budget{}, core.Expense{}, err
	}

	alloc, ok := b.Categories[category]
	if !ok {
		return core.Budget{}, core.Expense{}, core.ErrUnknownCategory
	}
	if alloc.Spent.Cents+amount.Cents > alloc.Budget.Cents {
		return core.Budget{}, core.Expense{}, ErrOverBudget
	}

	if err := s.storage.IncrementSpent(ctx, budgetID, category, amount.Cents); err != nil {
		if errors.Is(err, storage.ErrSpendConditionFailed) {
			return core.Budget{}, core.Expense{}, ErrOverBudget
		}
		return core.Budget{}, core.Expense{}, fmt.Errorf("increment spent: %w", err)
	}

	now := s.now()
	e := core.Expense{
		ID:        uuid.NewString(),
		UserID:    userID,
		Month:     b.Month,
		Day:       now.Day(),
		Category:  category,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := s.storage.CreateExpense(ctx, e); err != nil {
		// Roll the increment back so the allocation is not burned by a
		// spend that was never recorded.
		if derr := s.storage.DecrementSpent(ctx, budgetID, category, amount.Cents); derr != nil {
			slog.ErrorContext(ctx, "Failed to roll back spent increment",
				"budget_id", budgetID, "category", category, "error", derr)
		}
		return core.Budget{}, core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	alloc.Spent.Cents += amount.Cents
	b.Categories[category] = alloc

	s.maybePublishBudgetAlert(ctx, b, category)

	return b, e, nil
}

// DeleteExpense removes an expense and gives its amount back to the
// category it was spent from.
func (s *BudgetService) DeleteExpense(ctx context.Context, userID, expenseID string) (core.Budget, core.Expense, error) {
	e, err := s.storage.GetExpense(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Budget{}, core.Expense{}, ErrExpenseNotFound
	}
	if err != nil {
		return core.Budget{}, core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if e.UserID != userID {
		return core.Budget{}, core.Expense{}, ErrExpenseNotFound
	}

	b, err := s.storage.GetBudgetForMonth(ctx, userID, e.Month)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Budget{}, core.Expense{}, ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, core.Expense{}, fmt.Errorf("get budget for month: %w", err)
	}

	s.locks.Lock(b.ID)
	defer s.locks.Unlock(b.ID)

	if err := s.storage.DeleteExpense(ctx, expenseID); err != nil {
		return core.Budget{}, core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	if err := s.storage.DecrementSpent(ctx, b.ID, e.Category, e.Amount.Cents); err != nil {
		return core.Budget{}, core.Expense{}, fmt.Errorf("decrement spent: %w", err)
	}

	b, err = s.storage.GetBudget(ctx, b.ID)
	if err != nil {
		return core.Budget{}, core.Expense{}, fmt.Errorf("reload budget: %w", err)
	}
	return b, e, nil
}

// DeleteBudget removes a budget that has no spend recorded against it.
func (s *BudgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	s.locks.Lock(budgetID)
	defer s.locks.Unlock(budgetID)

	b, err := s.getOwnedBudget(ctx, userID, budgetID)
	if err != nil {
		return err
	}
	if b.TotalSpent().Cents > 0 {
		return ErrBudgetHasSpend
	}

	if err := s.storage.DeleteBudget(ctx, budgetID); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (s *BudgetService) GetBudget(ctx context.Context, userID, budgetID string) (core.Budget, error) {
	return s.getOwnedBudget(ctx, userID, budgetID)
}

func (s *BudgetService) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	return s.storage.ListBudgets(ctx, userID)
}

func (s *BudgetService) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, userID)
}

func (s *BudgetService) getOwnedBudget(ctx context.Context, userID, budgetID string) (core.Budget, error) {
	b, err := s.storage.GetBudget(ctx, budgetID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Budget{}, ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	if b.UserID != userID {
		return core.Budget{}, ErrBudgetNotFound
	}
	return b, nil
}

// maybePublishBudgetAlert notifies the broker when a category has been
// spent up to its allocation, if the user kept budget alerts on. Publish
// failures never fail the expense that triggered them.
func (s *BudgetService) maybePublishBudgetAlert(ctx context.Context, b core.Budget, category string) {
	if s.alerts == nil {
		return
	}
	alloc := b.Categories[category]
	if alloc.Spent.Cents < alloc.Budget.Cents {
		return
	}

	settings, err := s.storage.GetSettings(ctx, b.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load settings for budget alert",
			"user_id", b.UserID, "error", err)
		return
	}
	if !settings.AllowBudgetAlert {
		return
	}

	alert := amqp.BudgetAlert{
		UserID:      b.UserID,
		BudgetID:    b.ID,
		Month:       b.Month,
		Category:    category,
		SpentCents:  alloc.Spent.Cents,
		BudgetCents: alloc.Budget.Cents,
	}
	if err := s.alerts.PublishBudgetAlert(ctx, alert); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget alert",
			"budget_id", b.ID, "category", category, "error", err)
	}
}
