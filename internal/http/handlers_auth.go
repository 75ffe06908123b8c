package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"bilancio/internal/auth"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" || len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "email and a password of at least 8 characters are required"})
		return
	}

	u, err := s.accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	if !s.issueSession(w, r, u.ID) {
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Success: true, Message: "Account successfully created", Name: u.Name})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, authResponse{Message: "invalid request body"})
		return
	}

	u, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	if !s.issueSession(w, r, u.ID) {
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Login Successful", Name: u.Name})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, authResponse{Success: true, Message: "Logged out"})
}

func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, userID string) bool {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to issue session token", "error", err)
		writeJSON(w, http.StatusInternalServerError, authResponse{Message: "Something went wrong. Please try again"})
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

// withUser resolves the session cookie and passes the user ID on. Requests
// without a valid session never reach the handler.
func (s *Server) withUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.SessionCookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			writeJSON(w, http.StatusUnauthorized, authResponse{Message: "authentication required"})
			return
		}
		userID, err := s.tokens.Resolve(strings.TrimSpace(cookie.Value))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, authResponse{Message: "authentication required"})
			return
		}
		next(w, r, userID)
	}
}
