package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldEvent      = "event"
	FieldUserID     = "user_id"
	FieldBudgetID   = "budget_id"
	FieldExpenseID  = "expense_id"
	FieldSchemeID   = "scheme_id"
	FieldMonth      = "month"
	FieldCategory   = "category"
	FieldAmount     = "amount_cents"
	FieldSessions   = "sessions"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentRealtime = "realtime"
	ComponentBudget   = "budget"
	ComponentCategory = "category"
	ComponentScheme   = "scheme"
	ComponentAccount  = "account"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
)
