package realtime

import (
	"context"
	"encoding/json"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

func (h *Handler) handleCreateBudget(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req createBudgetRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "create-budget", "invalid payload")
		return
	}

	categories := make([]services.CategoryInput, 0, len(req.Categories))
	for _, c := range req.Categories {
		categories = append(categories, services.CategoryInput{
			Name:   c.Name,
			Amount: core.Money{Cents: int64(c.Budget)},
		})
	}

	b, err := h.budgets.CreateBudget(ctx, session.userID, req.Month,
		core.Money{Cents: int64(req.Amount)}, core.Money{Cents: int64(req.Income)}, categories)
	if err != nil {
		h.failErr(ctx, session, "create-budget", err)
		return
	}

	h.logger.InfoContext(ctx, "Budget created",
		log.FieldUserID, session.userID,
		log.FieldBudgetID, b.ID,
		log.FieldMonth, b.Month)
	session.room.broadcast(wsFrame{
		Event:   "create-budget",
		Payload: mustJSON(newBudgetPayload(b)),
	})
}

func (h *Handler) handleEditBudget(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req editBudgetRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "edit-budget", "invalid payload")
		return
	}

	categories := make([]services.CategoryInput, 0, len(req.Categories))
	for _, c := range req.Categories {
		categories = append(categories, services.CategoryInput{
			Name:   c.Name,
			Amount: core.Money{Cents: int64(c.Budget)},
		})
	}

	b, err := h.budgets.EditBudget(ctx, session.userID, req.BudgetID,
		core.Money{Cents: int64(req.Budget)}, core.Money{Cents: int64(req.Income)}, categories)
	if err != nil {
		h.failErr(ctx, session, "edit-budget", err)
		return
	}

	session.room.broadcast(wsFrame{
		Event:   "edit-budget",
		Payload: mustJSON(newBudgetPayload(b)),
	})
}

func (h *Handler) handleDeleteBudget(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req idRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "delete-budget", "invalid payload")
		return
	}

	if err := h.budgets.DeleteBudget(ctx, session.userID, req.BudgetID); err != nil {
		h.failErr(ctx, session, "delete-budget", err)
		return
	}

	h.logger.InfoContext(ctx, "Budget deleted",
		log.FieldUserID, session.userID,
		log.FieldBudgetID, req.BudgetID)
	session.room.broadcast(wsFrame{
		Event:   "delete-budget",
		Payload: mustJSON(deletedPayload{Success: true, BudgetID: req.BudgetID}),
	})
}

func (h *Handler) handleRecordExpense(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req recordExpenseRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "record-expense", "invalid payload")
		return
	}

	b, expense, err := h.budgets.RecordExpense(ctx, session.userID, req.BudgetID,
		req.Category, core.Money{Cents: int64(req.Amount)})
	if err != nil {
		h.failErr(ctx, session, "record-expense", err)
		return
	}

	h.logger.InfoContext(ctx, "Expense recorded",
		log.FieldUserID, session.userID,
		log.FieldBudgetID, b.ID,
		log.FieldExpenseID, expense.ID,
		log.FieldCategory, expense.Category,
		log.FieldAmount, expense.Amount.Cents)

	// Every session refreshes the category balances first, then receives
	// the expense row itself.
	session.room.broadcast(wsFrame{
		Event:   "update-budget",
		Payload: mustJSON(newUpdateBudgetPayload(b)),
	})
	session.room.broadcast(wsFrame{
		Event:   "record-expense",
		Payload: mustJSON(newExpensePayload(b, expense)),
	})
}

func (h *Handler) handleDeleteExpense(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req idRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "delete-expense", "invalid payload")
		return
	}

	b, expense, err := h.budgets.DeleteExpense(ctx, session.userID, req.ExpenseID)
	if err != nil {
		h.failErr(ctx, session, "delete-expense", err)
		return
	}

	// The deleting session already dropped the row locally; only its
	// sibling sessions need the delete-expense frame. Balances refresh
	// everywhere.
	session.room.broadcast(wsFrame{
		Event:   "update-budget",
		Payload: mustJSON(newUpdateBudgetPayload(b)),
	})
	session.room.broadcastExcept(wsFrame{
		Event:   "delete-expense",
		Payload: mustJSON(deletedPayload{Success: true, ExpenseID: expense.ID, BudgetID: b.ID}),
	}, session.peer)
}

func (h *Handler) handleCreateScheme(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req schemeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "create-scheme", "invalid payload")
		return
	}

	start, end, err := parseSchemeRange(req)
	if err != nil {
		h.failErr(ctx, session, "create-scheme", err)
		return
	}

	created, err := h.schemes.CreateScheme(ctx, session.userID, start, end,
		core.Money{Cents: int64(req.Amount)})
	if err != nil {
		h.failErr(ctx, session, "create-scheme", err)
		return
	}

	h.logger.InfoContext(ctx, "Scheme created",
		log.FieldUserID, session.userID,
		log.FieldSchemeID, created.Scheme.ID)
	session.room.broadcast(wsFrame{
		Event:   "create-scheme",
		Payload: mustJSON(newSchemePayload(created)),
	})
}

func (h *Handler) handleEditScheme(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req schemeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "edit-scheme", "invalid payload")
		return
	}

	start, end, err := parseSchemeRange(req)
	if err != nil {
		h.failErr(ctx, session, "edit-scheme", err)
		return
	}

	edited, err := h.schemes.EditScheme(ctx, session.userID, req.SchemeID, start, end,
		core.Money{Cents: int64(req.Amount)})
	if err != nil {
		h.failErr(ctx, session, "edit-scheme", err)
		return
	}

	session.room.broadcast(wsFrame{
		Event:   "edit-scheme",
		Payload: mustJSON(newSchemePayload(edited)),
	})
}

func (h *Handler) handleDeleteScheme(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req idRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "delete-scheme", "invalid payload")
		return
	}

	if err := h.schemes.DeleteScheme(ctx, session.userID, req.SchemeID); err != nil {
		h.failErr(ctx, session, "delete-scheme", err)
		return
	}

	session.room.broadcast(wsFrame{
		Event:   "delete-scheme",
		Payload: mustJSON(deletedPayload{Success: true, SchemeID: req.SchemeID}),
	})
}

func (h *Handler) handleAddCategory(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req categoryRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "add-category", "invalid payload")
		return
	}

	if err := h.categories.Add(ctx, session.userID, req.CategoryName); err != nil {
		h.failErr(ctx, session, "add-category", err)
		return
	}

	session.room.broadcast(wsFrame{
		Event:   "add-category",
		Payload: mustJSON(categoryListPayload{Success: true, CategoryName: req.CategoryName}),
	})
}

func (h *Handler) handleDeleteCategory(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req categoryRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "delete-category", "invalid payload")
		return
	}

	if err := h.categories.Delete(ctx, session.userID, req.CategoryName); err != nil {
		h.failErr(ctx, session, "delete-category", err)
		return
	}

	session.room.broadcast(wsFrame{
		Event:   "delete-category",
		Payload: mustJSON(categoryListPayload{Success: true, CategoryName: req.CategoryName}),
	})
}

func (h *Handler) handleUpdateData(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req updateDataRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "update-data", "invalid payload")
		return
	}

	u, err := h.accounts.UpdateProfile(ctx, session.userID, req.Name, req.Email, req.Password)
	if err != nil {
		h.failErr(ctx, session, "update-data", err)
		return
	}

	session.room.broadcast(wsFrame{
		Event:   "update-data",
		Payload: mustJSON(profilePayload{Success: true, Name: u.Name, Email: u.Email}),
	})
}

func (h *Handler) handleUpdatePassword(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req updatePasswordRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "update-password", "invalid payload")
		return
	}

	if err := h.accounts.UpdatePassword(ctx, session.userID, req.OldPassword, req.NewPassword); err != nil {
		h.failErr(ctx, session, "update-password", err)
		return
	}

	session.room.broadcast(wsFrame{
		Event:   "update-password",
		Payload: mustJSON(deletedPayload{Success: true}),
	})
}

func (h *Handler) handleSwitchOption(ctx context.Context, session *wsSession, payload json.RawMessage) {
	var req switchOptionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(session, "switch-option", "invalid payload")
		return
	}

	settings, err := h.accounts.SwitchOption(ctx, session.userID, services.SwitchOptions{
		AllowBudgetAlert: req.AllowBudgetAlert,
		AllowGoalAlert:   req.AllowGoalAlert,
		Allow2FA:         req.Allow2FA,
	})
	if err != nil {
		h.failErr(ctx, session, "switch-option", err)
		return
	}

	session.room.broadcast(wsFrame{
		Event: "switch-option",
		Payload: mustJSON(settingsPayload{
			Success:          true,
			AllowBudgetAlert: settings.AllowBudgetAlert,
			AllowGoalAlert:   settings.AllowGoalAlert,
			Allow2FA:         settings.Allow2FA,
		}),
	})
}

func parseSchemeRange(req schemeRequest) (start, end time.Time, err error) {
	start, err = core.ParseISODate(req.StartMonth)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = core.ParseISODate(req.EndMonth)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
