package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

type testEnv struct {
	server  *Server
	budgets *services.BudgetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewSessionTokens("0123456789abcdef0123456789abcdef", time.Hour)
	budgets := services.NewBudgetService(repo, nil)
	srv := NewServer(":0", Deps{
		Accounts:   services.NewAccountService(repo, auth.BcryptHasher{Cost: 4}),
		Budgets:    budgets,
		Schemes:    services.NewSchemeService(repo, nil),
		Categories: services.NewCategoryService(repo),
		Tokens:     tokens,
		SessionTTL: time.Hour,
		Realtime:   http.NotFoundHandler(),
		Logger:     log.New(log.DefaultConfig()),
	})
	t.Cleanup(func() { srv.Close() })

	return &testEnv{server: srv, budgets: budgets}
}

func (e *testEnv) do(t *testing.T, method, path, body, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	rr := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c.Name + "=" + c.Value
		}
	}
	t.Fatal("no session cookie in response")
	return ""
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := env.do(t, http.MethodGet, path, "", ""); rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/healthz", "", "")
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rr.Header().Get("Content-Security-Policy"); !strings.Contains(got, "connect-src 'self' ws: wss:") {
		t.Errorf("CSP = %q, want websocket connect-src", got)
	}
}

func TestSignupAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/signup",
		`{"name":"Ada","email":"ada@example.com","password":"hunter22x"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Account successfully created") {
		t.Errorf("signup body = %s", rr.Body.String())
	}
	sessionCookie(t, rr)

	rr = env.do(t, http.MethodPost, "/api/signup",
		`{"name":"Imposter","email":"ada@example.com","password":"hunter22x"}`, "")
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Email already exists") {
		t.Errorf("duplicate signup body = %s", rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/api/login",
		`{"email":"ada@example.com","password":"wrong"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Incorrect Password") {
		t.Errorf("bad login body = %s", rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/api/login",
		`{"email":"nobody@example.com","password":"hunter22x"}`, "")
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "Invalid Email") {
		t.Errorf("unknown email: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/api/login",
		`{"email":"ada@example.com","password":"hunter22x"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Login Successful") {
		t.Errorf("login body = %s", rr.Body.String())
	}
	sessionCookie(t, rr)
}

func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/budgets", "/api/expenses", "/api/schemes", "/api/categories", "/api/settings"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want 401", path, rr.Code)
		}
	}

	rr := env.do(t, http.MethodGet, "/api/budgets", "", auth.SessionCookieName+"=garbage")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rr.Code)
	}
}

func TestReadAPI(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/signup",
		`{"name":"Ada","email":"ada@example.com","password":"hunter22x"}`, "")
	cookie := sessionCookie(t, rr)

	var signup struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &signup); err != nil || !signup.Success {
		t.Fatalf("signup response: %s", rr.Body.String())
	}

	// Seed a budget and two expenses through the service layer.
	ctx := context.Background()
	var userID string
	{
		token := strings.TrimPrefix(cookie, auth.SessionCookieName+"=")
		id, err := env.server.tokens.Resolve(token)
		if err != nil {
			t.Fatalf("resolve token: %v", err)
		}
		userID = id
	}
	b, err := env.budgets.CreateBudget(ctx, userID, "2024-03",
		core.Money{Cents: 110000}, core.Money{Cents: 200000}, []services.CategoryInput{
			{Name: "Food", Amount: core.Money{Cents: 10000}},
			{Name: "Rent", Amount: core.Money{Cents: 100000}},
		})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	for _, cents := range []int64{2500, 1500} {
		if _, _, err := env.budgets.RecordExpense(ctx, userID, b.ID, "Food", core.Money{Cents: cents}); err != nil {
			t.Fatalf("record expense: %v", err)
		}
	}

	rr = env.do(t, http.MethodGet, "/api/budgets", "", cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("budgets status = %d", rr.Code)
	}
	var budgets struct {
		Budgets []budgetJSON `json:"budgets"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &budgets); err != nil {
		t.Fatalf("decode budgets: %v", err)
	}
	if len(budgets.Budgets) != 1 || budgets.Budgets[0].Month != "2024-03" {
		t.Fatalf("budgets = %+v", budgets.Budgets)
	}
	if budgets.Budgets[0].Categories[0].Name != "Food" || budgets.Budgets[0].Categories[0].Spent != 4000 {
		t.Errorf("categories = %+v", budgets.Budgets[0].Categories)
	}

	rr = env.do(t, http.MethodGet, "/api/expenses", "", cookie)
	var expenses struct {
		Months []monthExpensesJSON `json:"months"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &expenses); err != nil {
		t.Fatalf("decode expenses: %v", err)
	}
	if len(expenses.Months) != 1 || expenses.Months[0].Month != "2024-03" {
		t.Fatalf("months = %+v", expenses.Months)
	}
	if len(expenses.Months[0].Expenses) != 2 {
		t.Errorf("expenses = %+v", expenses.Months[0].Expenses)
	}

	rr = env.do(t, http.MethodGet, "/api/schemes", "", cookie)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"schemes":[]`) {
		t.Errorf("schemes: status = %d, body = %s", rr.Code, rr.Body.String())
	}
}
