package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bilancio/internal/core"
)

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (r *SQLiteRepository) getUser(ctx context.Context, query, arg string) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, id, name, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ? WHERE id = ?`, name, email, id)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- category registry ---

func (r *SQLiteRepository) GetCategoryList(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM user_categories WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("select category list: %w", err)
	}
	defer rows.Close()

	var list []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		list = append(list, name)
	}
	return list, rows.Err()
}

// ReplaceCategoryList atomically swaps the user's registry for the given
// list, preserving its order.
func (r *SQLiteRepository) ReplaceCategoryList(ctx context.Context, userID string, list []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_categories WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear category list: %w", err)
	}
	for i, name := range list {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_categories (user_id, name, position) VALUES (?, ?, ?)`,
			userID, name, i); err != nil {
			return fmt.Errorf("insert category %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit category list: %w", err)
	}
	return nil
}

// --- settings ---

// GetSettings returns the user's settings, falling back to the defaults
// the original profile starts with when no row exists yet.
func (r *SQLiteRepository) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	s := core.Settings{UserID: userID}
	var budgetAlert, goalAlert, twofa int
	err := r.db.QueryRowContext(ctx,
		`SELECT allow_budget_alert, allow_goal_alert, allow_twofa FROM settings WHERE user_id = ?`,
		userID).Scan(&budgetAlert, &goalAlert, &twofa)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{UserID: userID, AllowBudgetAlert: true, AllowGoalAlert: true}, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("select settings: %w", err)
	}
	s.AllowBudgetAlert = budgetAlert != 0
	s.AllowGoalAlert = goalAlert != 0
	s.Allow2FA = twofa != 0
	return s, nil
}

func (r *SQLiteRepository) UpsertSettings(ctx context.Context, s core.Settings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, allow_budget_alert, allow_goal_alert, allow_twofa)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   allow_budget_alert = excluded.allow_budget_alert,
		   allow_goal_alert = excluded.allow_goal_alert,
		   allow_twofa = excluded.allow_twofa`,
		s.UserID, boolToInt(s.AllowBudgetAlert), boolToInt(s.AllowGoalAlert), boolToInt(s.Allow2FA))
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
