package amqp

import (
	"encoding/json"
	"time"
)

// Alert kinds carried on the alerts queue.
const (
	KindBudgetAlert = "budget-alert"
	KindGoalAlert   = "goal-alert"
)

// AlertMessage is the envelope published when a budget category fills up
// or a savings goal completes. The worker consumes these and dispatches
// notifications out of band.
type AlertMessage struct {
	Kind      string       `json:"kind"`
	Budget    *BudgetAlert `json:"budget,omitempty"`
	Goal      *GoalAlert   `json:"goal,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// BudgetAlert reports a category whose spend reached the alert threshold.
type BudgetAlert struct {
	UserID      string `json:"user_id"`
	BudgetID    string `json:"budget_id"`
	Month       string `json:"month"`
	Category    string `json:"category"`
	SpentCents  int64  `json:"spent_cents"`
	BudgetCents int64  `json:"budget_cents"`
}

// GoalAlert reports a savings scheme that reached full funding.
type GoalAlert struct {
	UserID         string `json:"user_id"`
	SchemeID       string `json:"scheme_id"`
	Progress       int    `json:"progress"`
	SavedCents     int64  `json:"saved_cents"`
	MinAmountCents int64  `json:"min_amount_cents"`
}

func NewBudgetAlertMessage(a BudgetAlert) *AlertMessage {
	return &AlertMessage{Kind: KindBudgetAlert, Budget: &a, Timestamp: time.Now()}
}

func NewGoalAlertMessage(a GoalAlert) *AlertMessage {
	return &AlertMessage{Kind: KindGoalAlert, Goal: &a, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes.
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON creates a message from JSON bytes.
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
