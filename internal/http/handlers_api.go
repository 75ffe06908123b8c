package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type categoryJSON struct {
	Name   string `json:"name"`
	Budget int64  `json:"budget"`
	Spent  int64  `json:"spent"`
}

type budgetJSON struct {
	BudgetID   string         `json:"budgetId"`
	Month      string         `json:"month"`
	Amount     int64          `json:"amount"`
	Income     int64          `json:"income"`
	Categories []categoryJSON `json:"categories"`
}

type expenseJSON struct {
	ExpenseID string `json:"expenseId"`
	Month     string `json:"month"`
	Day       int    `json:"day"`
	Category  string `json:"category"`
	Amount    int64  `json:"amount"`
}

type monthExpensesJSON struct {
	Month    string        `json:"month"`
	Expenses []expenseJSON `json:"expenses"`
}

type schemeJSON struct {
	SchemeID    string `json:"schemeId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	MinAmount   int64  `json:"minAmount"`
	Progress    int    `json:"progress"`
	Saved       int64  `json:"saved"`
	TotalIncome int64  `json:"totalIncome"`
	TotalSpent  int64  `json:"totalSpent"`
	Active      bool   `json:"active"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, userID string) {
	budgets, err := s.budgets.ListBudgets(r.Context(), userID)
	if err != nil {
		s.writeInternalError(w, r, err)
		return
	}

	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetJSON(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

// handleListExpenses returns the user's expenses grouped by month, newest
// month first. Grouping happens here so clients render months directly.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, userID string) {
	expenses, err := s.budgets.ListExpenses(r.Context(), userID)
	if err != nil {
		s.writeInternalError(w, r, err)
		return
	}

	months := make([]monthExpensesJSON, 0)
	index := make(map[string]int)
	for _, e := range expenses {
		i, ok := index[e.Month]
		if !ok {
			i = len(months)
			index[e.Month] = i
			months = append(months, monthExpensesJSON{Month: e.Month, Expenses: []expenseJSON{}})
		}
		months[i].Expenses = append(months[i].Expenses, expenseJSON{
			ExpenseID: e.ID,
			Month:     e.Month,
			Day:       e.Day,
			Category:  e.Category,
			Amount:    e.Amount.Cents,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": months})
}

func (s *Server) handleListSchemes(w http.ResponseWriter, r *http.Request, userID string) {
	schemes, err := s.schemes.ListSchemes(r.Context(), userID)
	if err != nil {
		s.writeInternalError(w, r, err)
		return
	}

	out := make([]schemeJSON, 0, len(schemes))
	for _, sp := range schemes {
		out = append(out, schemeJSON{
			SchemeID:    sp.Scheme.ID,
			StartDate:   sp.Scheme.StartDate.Format("2006-01-02"),
			EndDate:     sp.Scheme.EndDate.Format("2006-01-02"),
			MinAmount:   sp.Scheme.MinAmount.Cents,
			Progress:    sp.Progress.Progress,
			Saved:       sp.Progress.Saved.Cents,
			TotalIncome: sp.Progress.TotalIncome.Cents,
			TotalSpent:  sp.Progress.TotalSpent.Cents,
			Active:      sp.Progress.Active,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemes": out})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, userID string) {
	list, err := s.categories.List(r.Context(), userID)
	if err != nil {
		s.writeInternalError(w, r, err)
		return
	}
	if list == nil {
		list = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": list})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, userID string) {
	settings, err := s.accounts.GetSettings(r.Context(), userID)
	if err != nil {
		s.writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"allowBudgetAlert": settings.AllowBudgetAlert,
		"allowGoalAlert":   settings.AllowGoalAlert,
		"allow2FA":         settings.Allow2FA,
	})
}

func toBudgetJSON(b core.Budget) budgetJSON {
	categories := make([]categoryJSON, 0, len(b.Categories))
	for _, name := range b.CategoryNames() {
		alloc := b.Categories[name]
		categories = append(categories, categoryJSON{
			Name:   name,
			Budget: alloc.Budget.Cents,
			Spent:  alloc.Spent.Cents,
		})
	}
	return budgetJSON{
		BudgetID:   b.ID,
		Month:      b.Month,
		Amount:     b.Amount.Cents,
		Income:     b.Income.Cents,
		Categories: categories,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, authResponse{Message: err.Error()})
	case errors.Is(err, services.ErrInvalidEmail), errors.Is(err, services.ErrIncorrectPassword):
		writeJSON(w, http.StatusUnauthorized, authResponse{Message: err.Error()})
	default:
		s.writeInternalError(w, r, err)
	}
}

func (s *Server) writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, authResponse{Message: "Something went wrong. Please try again"})
}
