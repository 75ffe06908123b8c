// Package storage is the SQLite persistence layer. It exposes plain
// query/update/delete operations per record kind; all invariant
// enforcement beyond the conditional spend update lives in the services.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrSpendConditionFailed reports that a conditional spend increment
	// found no matching row: either the category is missing or the
	// increment would push spent past the allocation.
	ErrSpendConditionFailed = errors.New("spend update condition not met")
)

const timeLayout = time.RFC3339

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- budgets ---

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, month, amount_cents, income_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Month, b.Amount.Cents, b.Income.Cents, b.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}

	if err := insertCategories(ctx, tx, b); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget: %w", err)
	}
	return nil
}

func insertCategories(ctx context.Context, tx *sql.Tx, b core.Budget) error {
	for i, name := range b.CategoryNames() {
		alloc := b.Categories[name]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budget_categories (budget_id, name, budget_cents, spent_cents, position)
			 VALUES (?, ?, ?, ?, ?)`,
			b.ID, name, alloc.Budget.Cents, alloc.Spent.Cents, i)
		if err != nil {
			return fmt.Errorf("insert budget category %q: %w", name, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	var (
		b         core.Budget
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, month, amount_cents, income_cents, created_at
		 FROM budgets WHERE id = ?`, id).
		Scan(&b.ID, &b.UserID, &b.Month, &b.Amount.Cents, &b.Income.Cents, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("select budget: %w", err)
	}
	b.CreatedAt = parseTime(createdAt)

	if err := r.loadCategories(ctx, &b); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *SQLiteRepository) loadCategories(ctx context.Context, b *core.Budget) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, budget_cents, spent_cents
		 FROM budget_categories WHERE budget_id = ? ORDER BY position`, b.ID)
	if err != nil {
		return fmt.Errorf("select budget categories: %w", err)
	}
	defer rows.Close()

	b.Categories = make(map[string]core.CategoryAllocation)
	b.Order = nil
	for rows.Next() {
		var (
			name  string
			alloc core.CategoryAllocation
		)
		if err := rows.Scan(&name, &alloc.Budget.Cents, &alloc.Spent.Cents); err != nil {
			return fmt.Errorf("scan budget category: %w", err)
		}
		b.Categories[name] = alloc
		b.Order = append(b.Order, name)
	}
	return rows.Err()
}

// GetBudgetForMonth returns the user's budget for the given YYYY-MM month.
func (r *SQLiteRepository) GetBudgetForMonth(ctx context.Context, userID, month string) (core.Budget, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM budgets WHERE user_id = ? AND month = ?`, userID, month).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("select budget for month: %w", err)
	}
	return r.GetBudget(ctx, id)
}

// BudgetExistsForMonth reports whether the user already has a budget for
// the given YYYY-MM month.
func (r *SQLiteRepository) BudgetExistsForMonth(ctx context.Context, userID, month string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budgets WHERE user_id = ? AND month = ?`, userID, month).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count budgets for month: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, month, amount_cents, income_cents, created_at
		 FROM budgets WHERE user_id = ? ORDER BY month DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b         core.Budget
			createdAt string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Month, &b.Amount.Cents, &b.Income.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.CreatedAt = parseTime(createdAt)
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range budgets {
		if err := r.loadCategories(ctx, &budgets[i]); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// BudgetsByMonth returns all of the user's budgets keyed by month, the
// shape the savings progress calculator consumes.
func (r *SQLiteRepository) BudgetsByMonth(ctx context.Context, userID string) (map[string]core.Budget, error) {
	budgets, err := r.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]core.Budget, len(budgets))
	for _, b := range budgets {
		byMonth[b.Month] = b
	}
	return byMonth, nil
}

// ReplaceBudget overwrites amount, income, and the entire category map of
// an existing budget.
func (r *SQLiteRepository) ReplaceBudget(ctx context.Context, b core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE budgets SET amount_cents = ?, income_cents = ? WHERE id = ?`,
		b.Amount.Cents, b.Income.Cents, b.ID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM budget_categories WHERE budget_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear budget categories: %w", err)
	}
	if err := insertCategories(ctx, tx, b); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget replace: %w", err)
	}
	return nil
}

// IncrementSpent adds delta cents to a category's spent total only when
// the result stays within the allocation. ErrSpendConditionFailed means
// the row was missing or the increment would overshoot.
func (r *SQLiteRepository) IncrementSpent(ctx context.Context, budgetID, category string, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budget_categories
		 SET spent_cents = spent_cents + ?
		 WHERE budget_id = ? AND name = ? AND spent_cents + ? <= budget_cents`,
		deltaCents, budgetID, category, deltaCents)
	if err != nil {
		return fmt.Errorf("increment spent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment spent rows: %w", err)
	}
	if n == 0 {
		return ErrSpendConditionFailed
	}
	return nil
}

// DecrementSpent subtracts delta cents from a category's spent total with
// no floor check, mirroring how expense deletion reverses a spend.
func (r *SQLiteRepository) DecrementSpent(ctx context.Context, budgetID, category string, deltaCents int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE budget_categories SET spent_cents = spent_cents - ?
		 WHERE budget_id = ? AND name = ?`,
		deltaCents, budgetID, category)
	if err != nil {
		return fmt.Errorf("decrement spent: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM budget_categories WHERE budget_id = ?`, id); err != nil {
		return fmt.Errorf("delete budget categories: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget delete: %w", err)
	}
	return nil
}

// --- expenses ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, month, day, category, amount_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Month, e.Day, e.Category, e.Amount.Cents, e.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	var (
		e         core.Expense
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, month, day, category, amount_cents, created_at
		 FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.UserID, &e.Month, &e.Day, &e.Category, &e.Amount.Cents, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("select expense: %w", err)
	}
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, month, day, category, amount_cents, created_at
		 FROM expenses WHERE user_id = ? ORDER BY month DESC, day DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e         core.Expense
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Month, &e.Day, &e.Category, &e.Amount.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// --- schemes ---

func (r *SQLiteRepository) CreateScheme(ctx context.Context, s core.Scheme) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schemes (id, user_id, start_date, end_date, min_amount_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"),
		s.MinAmount.Cents, s.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert scheme: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateScheme(ctx context.Context, s core.Scheme) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schemes SET start_date = ?, end_date = ?, min_amount_cents = ? WHERE id = ?`,
		s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02"), s.MinAmount.Cents, s.ID)
	if err != nil {
		return fmt.Errorf("update scheme: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetScheme(ctx context.Context, id string) (core.Scheme, error) {
	var (
		s          core.Scheme
		start, end string
		createdAt  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, start_date, end_date, min_amount_cents, created_at
		 FROM schemes WHERE id = ?`, id).
		Scan(&s.ID, &s.UserID, &start, &end, &s.MinAmount.Cents, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Scheme{}, ErrNotFound
	}
	if err != nil {
		return core.Scheme{}, fmt.Errorf("select scheme: %w", err)
	}
	s.StartDate, _ = time.Parse("2006-01-02", start)
	s.EndDate, _ = time.Parse("2006-01-02", end)
	s.CreatedAt = parseTime(createdAt)
	return s, nil
}

func (r *SQLiteRepository) DeleteScheme(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schemes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete scheme: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListSchemes(ctx context.Context, userID string) ([]core.Scheme, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, start_date, end_date, min_amount_cents, created_at
		 FROM schemes WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select schemes: %w", err)
	}
	defer rows.Close()

	var schemes []core.Scheme
	for rows.Next() {
		var (
			s          core.Scheme
			start, end string
			createdAt  string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &start, &end, &s.MinAmount.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan scheme: %w", err)
		}
		s.StartDate, _ = time.Parse("2006-01-02", start)
		s.EndDate, _ = time.Parse("2006-01-02", end)
		s.CreatedAt = parseTime(createdAt)
		schemes = append(schemes, s)
	}
	return schemes, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
