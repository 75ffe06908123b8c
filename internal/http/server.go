// Package http exposes the HTTP surface: session endpoints, the JSON read
// API and the websocket mount. All mutations go through the websocket; the
// read API exists for initial page loads and non-realtime clients.
package http

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

type Server struct {
	http.Server

	accounts   *services.AccountService
	budgets    *services.BudgetService
	schemes    *services.SchemeService
	categories *services.CategoryService

	tokens     *auth.SessionTokens
	sessionTTL time.Duration

	limiter      *ratelimit.Limiter
	logger       *log.Logger
	shutdownOnce sync.Once
	shutdownErr  error
}

type Deps struct {
	Accounts   *services.AccountService
	Budgets    *services.BudgetService
	Schemes    *services.SchemeService
	Categories *services.CategoryService
	Tokens     *auth.SessionTokens
	SessionTTL time.Duration
	Realtime   http.Handler
	Logger     *log.Logger
}

func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		accounts:   deps.Accounts,
		budgets:    deps.Budgets,
		schemes:    deps.Schemes,
		categories: deps.Categories,
		tokens:     deps.Tokens,
		sessionTTL: deps.SessionTTL,
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:     deps.Logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.Handle("/ws", deps.Realtime)

	mux.HandleFunc("/api/signup", s.handleSignup)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)

	mux.HandleFunc("/api/budgets", s.withUser(s.handleListBudgets))
	mux.HandleFunc("/api/expenses", s.withUser(s.handleListExpenses))
	mux.HandleFunc("/api/schemes", s.withUser(s.handleListSchemes))
	mux.HandleFunc("/api/categories", s.withUser(s.handleListCategories))
	mux.HandleFunc("/api/settings", s.withUser(s.handleGetSettings))

	// The websocket endpoint carries its own long-lived connection; rate
	// limiting applies to the plain HTTP routes only.
	tracer := trace.NewMiddleware(extractClientIP, deps.Logger)
	api := tracer.Wrap(security.Wrap(security.DefaultHeadersConfig(), s.limitPosts(mux)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) limitPosts(next http.Handler) http.Handler {
	limited := s.limiter.Wrap(extractClientIP, next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close stops the limiter's cleanup goroutine alongside the listener.
func (s *Server) Close() error {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.shutdownErr = s.Server.Close()
	})
	return s.shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// extractClientIP returns the client address, honoring forwarding headers
// only when the direct peer is a private or loopback address.
func extractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil {
		return directIP
	}
	if parsed.IsLoopback() || parsed.IsPrivate() {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
		}
	}
	return directIP
}
