// Package worker dispatches alert notifications consumed from the broker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// AlertWorker turns alert messages into delivered notifications. Delivery
// is a structured log line addressed to the recipient; the broker handles
// retries, so a returned error requeues the message.
type AlertWorker struct {
	storage *storage.SQLiteRepository
}

func NewAlertWorker(storage *storage.SQLiteRepository) *AlertWorker {
	return &AlertWorker{storage: storage}
}

// HandleAlert processes a single alert message from AMQP.
func (w *AlertWorker) HandleAlert(ctx context.Context, msg *amqp.AlertMessage) error {
	switch msg.Kind {
	case amqp.KindBudgetAlert:
		if msg.Budget == nil {
			return fmt.Errorf("budget alert without payload")
		}
		return w.dispatchBudgetAlert(ctx, msg.Budget)
	case amqp.KindGoalAlert:
		if msg.Goal == nil {
			return fmt.Errorf("goal alert without payload")
		}
		return w.dispatchGoalAlert(ctx, msg.Goal)
	default:
		return fmt.Errorf("unknown alert kind %q", msg.Kind)
	}
}

func (w *AlertWorker) dispatchBudgetAlert(ctx context.Context, alert *amqp.BudgetAlert) error {
	recipient, err := w.recipient(ctx, alert.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Account deleted after publish; requeueing would loop forever.
			slog.WarnContext(ctx, "Dropping budget alert for unknown user", "user_id", alert.UserID)
			return nil
		}
		return fmt.Errorf("resolve recipient: %w", err)
	}

	slog.InfoContext(ctx, "Dispatching budget alert",
		"recipient", recipient,
		"user_id", alert.UserID,
		"month", alert.Month,
		"category", alert.Category,
		"message", budgetAlertText(alert))
	return nil
}

func (w *AlertWorker) dispatchGoalAlert(ctx context.Context, alert *amqp.GoalAlert) error {
	recipient, err := w.recipient(ctx, alert.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Dropping goal alert for unknown user", "user_id", alert.UserID)
			return nil
		}
		return fmt.Errorf("resolve recipient: %w", err)
	}

	slog.InfoContext(ctx, "Dispatching goal alert",
		"recipient", recipient,
		"user_id", alert.UserID,
		"scheme_id", alert.SchemeID,
		"message", goalAlertText(alert))
	return nil
}

func (w *AlertWorker) recipient(ctx context.Context, userID string) (string, error) {
	u, err := w.storage.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func budgetAlertText(alert *amqp.BudgetAlert) string {
	return fmt.Sprintf("You have used %s of your %s budget for %s in %s",
		core.Money{Cents: alert.SpentCents},
		core.Money{Cents: alert.BudgetCents},
		alert.Category,
		alert.Month)
}

func goalAlertText(alert *amqp.GoalAlert) string {
	return fmt.Sprintf("Congratulations! You saved %s and reached your goal of %s",
		core.Money{Cents: alert.SavedCents},
		core.Money{Cents: alert.MinAmountCents})
}
