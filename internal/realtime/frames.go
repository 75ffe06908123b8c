package realtime

import (
	"encoding/json"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

// wsFrame is the wire shape of every realtime message, both directions:
// an event name and a JSON payload. Outbound amounts are always integer
// cents; inbound amounts may also be decimal strings (see amountCents).
type wsFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// amountCents is an inbound money amount. Clients send either integer
// cents or a decimal string ("12.34", "12,34"); strings go through
// core.ParseDecimalToCents so rounding happens once at the edge.
type amountCents int64

func (a *amountCents) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		cents, err := core.ParseDecimalToCents(s)
		if err != nil {
			return err
		}
		*a = amountCents(cents)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountCents(n)
	return nil
}

type categoryPayload struct {
	Name   string `json:"name"`
	Budget int64  `json:"budget"`
	Spent  int64  `json:"spent"`
}

type budgetPayload struct {
	Success    bool              `json:"success"`
	BudgetID   string            `json:"budgetId"`
	UserID     string            `json:"userId"`
	Month      string            `json:"month"`
	Amount     int64             `json:"amount"`
	Income     int64             `json:"income"`
	Categories []categoryPayload `json:"categories"`
	Date       string            `json:"date"`
}

// updateBudgetPayload refreshes category balances on every session after
// a spend lands or is undone.
type updateBudgetPayload struct {
	BudgetID   string            `json:"budgetId"`
	Categories []categoryPayload `json:"categories"`
	Budget     int64             `json:"budget"`
}

type expensePayload struct {
	Success    bool              `json:"success"`
	ExpenseID  string            `json:"expenseId"`
	BudgetID   string            `json:"budgetId"`
	UserID     string            `json:"userId"`
	Month      string            `json:"month"`
	Day        int               `json:"day"`
	Category   string            `json:"category"`
	Categories []categoryPayload `json:"categories"`
	Amount     int64             `json:"amount"`
	Date       string            `json:"date"`
}

type schemePayload struct {
	Success     bool   `json:"success"`
	SchemeID    string `json:"schemeId"`
	UserID      string `json:"userId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	MinAmount   int64  `json:"minAmount"`
	Progress    int    `json:"progress"`
	Saved       int64  `json:"saved"`
	TotalIncome int64  `json:"totalIncome"`
	TotalSpent  int64  `json:"totalSpent"`
	Active      bool   `json:"active"`
}

// connectedPayload greets a session right after the upgrade, carrying how
// many sessions the user now has open.
type connectedPayload struct {
	UserID   string `json:"userId"`
	Sessions int    `json:"sessions"`
}

type failurePayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type deletedPayload struct {
	Success   bool   `json:"success"`
	BudgetID  string `json:"budgetId,omitempty"`
	SchemeID  string `json:"schemeId,omitempty"`
	ExpenseID string `json:"expenseId,omitempty"`
}

type categoryListPayload struct {
	Success      bool   `json:"success"`
	CategoryName string `json:"categoryName"`
}

type profilePayload struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

type settingsPayload struct {
	Success          bool `json:"success"`
	AllowBudgetAlert bool `json:"allowBudgetAlert"`
	AllowGoalAlert   bool `json:"allowGoalAlert"`
	Allow2FA         bool `json:"allow2FA"`
}

// request payloads

type createBudgetRequest struct {
	Month      string      `json:"month"`
	Amount     amountCents `json:"amount"`
	Income     amountCents `json:"income"`
	Categories []struct {
		Name   string      `json:"name"`
		Budget amountCents `json:"budget"`
	} `json:"categories"`
}

type editBudgetRequest struct {
	BudgetID   string      `json:"budgetId"`
	Budget     amountCents `json:"budget"`
	Income     amountCents `json:"income"`
	Categories []struct {
		Name   string      `json:"name"`
		Budget amountCents `json:"budget"`
	} `json:"categories"`
}

type recordExpenseRequest struct {
	BudgetID string      `json:"budgetId"`
	Category string      `json:"category"`
	Amount   amountCents `json:"amount"`
}

type schemeRequest struct {
	SchemeID   string      `json:"schemeId,omitempty"`
	StartMonth string      `json:"startMonth"`
	EndMonth   string      `json:"endMonth"`
	Amount     amountCents `json:"amount"`
}

type idRequest struct {
	BudgetID  string `json:"budgetId,omitempty"`
	SchemeID  string `json:"schemeId,omitempty"`
	ExpenseID string `json:"expenseId,omitempty"`
}

type categoryRequest struct {
	CategoryName string `json:"categoryName"`
}

type updateDataRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type switchOptionRequest struct {
	AllowBudgetAlert *bool `json:"allowBudgetAlert,omitempty"`
	AllowGoalAlert   *bool `json:"allowGoalAlert,omitempty"`
	Allow2FA         *bool `json:"allow2FA,omitempty"`
}

const wireDateLayout = "2006-01-02 15:04:05"

func categoriesPayload(b core.Budget) []categoryPayload {
	out := make([]categoryPayload, 0, len(b.Categories))
	for _, name := range b.CategoryNames() {
		alloc := b.Categories[name]
		out = append(out, categoryPayload{
			Name:   name,
			Budget: alloc.Budget.Cents,
			Spent:  alloc.Spent.Cents,
		})
	}
	return out
}

func newBudgetPayload(b core.Budget) budgetPayload {
	return budgetPayload{
		Success:    true,
		BudgetID:   b.ID,
		UserID:     b.UserID,
		Month:      b.Month,
		Amount:     b.Amount.Cents,
		Income:     b.Income.Cents,
		Categories: categoriesPayload(b),
		Date:       b.CreatedAt.UTC().Format(wireDateLayout),
	}
}

func newUpdateBudgetPayload(b core.Budget) updateBudgetPayload {
	return updateBudgetPayload{
		BudgetID:   b.ID,
		Categories: categoriesPayload(b),
		Budget:     b.Amount.Cents,
	}
}

func newExpensePayload(b core.Budget, e core.Expense) expensePayload {
	return expensePayload{
		Success:    true,
		ExpenseID:  e.ID,
		BudgetID:   b.ID,
		UserID:     e.UserID,
		Month:      e.Month,
		Day:        e.Day,
		Category:   e.Category,
		Categories: categoriesPayload(b),
		Amount:     e.Amount.Cents,
		Date:       e.CreatedAt.UTC().Format(wireDateLayout),
	}
}

func newSchemePayload(s services.SchemeWithProgress) schemePayload {
	return schemePayload{
		Success:     true,
		SchemeID:    s.Scheme.ID,
		UserID:      s.Scheme.UserID,
		StartDate:   s.Scheme.StartDate.Format("2006-01-02"),
		EndDate:     s.Scheme.EndDate.Format("2006-01-02"),
		MinAmount:   s.Scheme.MinAmount.Cents,
		Progress:    s.Progress.Progress,
		Saved:       s.Progress.Saved.Cents,
		TotalIncome: s.Progress.TotalIncome.Cents,
		TotalSpent:  s.Progress.TotalSpent.Cents,
		Active:      s.Progress.Active,
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
