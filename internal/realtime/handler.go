// Package realtime hosts the websocket surface. Every budget, expense,
// scheme and account mutation arrives here as an event frame, runs through
// the services layer and fans back out to the user's open sessions.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

const (
	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
)

type wsUserIDContextKey struct{}

type wsSession struct {
	userID string
	peer   *wsPeer
	room   *userRoom
}

// Handler owns the websocket endpoint and the per-user fan-out hub.
type Handler struct {
	budgets    *services.BudgetService
	categories *services.CategoryService
	schemes    *services.SchemeService
	accounts   *services.AccountService
	resolver   auth.CredentialResolver
	hub        *userHub
	logger     *log.Logger
}

func NewHandler(
	budgets *services.BudgetService,
	categories *services.CategoryService,
	schemes *services.SchemeService,
	accounts *services.AccountService,
	resolver auth.CredentialResolver,
	logger *log.Logger,
) *Handler {
	return &Handler{
		budgets:    budgets,
		categories: categories,
		schemes:    schemes,
		accounts:   accounts,
		resolver:   resolver,
		hub:        newUserHub(),
		logger:     logger.WithComponent(log.ComponentRealtime),
	}
}

// ServeHTTP upgrades /ws connections. Upgrades without a resolvable
// session cookie are rejected before the websocket handshake.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		h.logger.WarnContext(r.Context(), "Websocket upgrade without session cookie",
			"remote", r.RemoteAddr)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	userID, err := h.resolver.Resolve(strings.TrimSpace(cookie.Value))
	if err != nil || strings.TrimSpace(userID) == "" {
		h.logger.WarnContext(r.Context(), "Websocket upgrade with invalid session",
			"remote", r.RemoteAddr, "error", err)
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	ctx := context.WithValue(r.Context(), wsUserIDContextKey{}, strings.TrimSpace(userID))
	websocket.Handler(h.handleConn).ServeHTTP(w, r.WithContext(ctx))
}

func (h *Handler) handleConn(conn *websocket.Conn) {
	defer conn.Close()

	request := conn.Request()
	userID, _ := request.Context().Value(wsUserIDContextKey{}).(string)
	if userID == "" {
		return
	}

	peer := newWSPeer(json.NewEncoder(conn))
	session := &wsSession{
		userID: userID,
		peer:   peer,
		room:   h.hub.join(userID, peer),
	}
	defer h.hub.leave(userID, peer)

	sessions := h.hub.sessions(userID)
	h.logger.InfoContext(request.Context(), "Session connected",
		log.FieldUserID, userID,
		log.FieldSessions, sessions)

	_ = session.peer.writeFrame(wsFrame{
		Event:   "connected",
		Payload: mustJSON(connectedPayload{UserID: userID, Sessions: sessions}),
	})

	decoder := json.NewDecoder(conn)
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			h.fail(session, "error", "invalid frame")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			h.fail(session, frame.Event, "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			h.fail(session, frame.Event, "rate limit exceeded")
			return
		}

		h.dispatch(request.Context(), session, frame)
	}
}

func (h *Handler) dispatch(ctx context.Context, session *wsSession, frame wsFrame) {
	switch frame.Event {
	case "create-budget":
		h.handleCreateBudget(ctx, session, frame.Payload)
	case "edit-budget":
		h.handleEditBudget(ctx, session, frame.Payload)
	case "delete-budget":
		h.handleDeleteBudget(ctx, session, frame.Payload)
	case "record-expense":
		h.handleRecordExpense(ctx, session, frame.Payload)
	case "delete-expense":
		h.handleDeleteExpense(ctx, session, frame.Payload)
	case "create-scheme":
		h.handleCreateScheme(ctx, session, frame.Payload)
	case "edit-scheme":
		h.handleEditScheme(ctx, session, frame.Payload)
	case "delete-scheme":
		h.handleDeleteScheme(ctx, session, frame.Payload)
	case "add-category":
		h.handleAddCategory(ctx, session, frame.Payload)
	case "delete-category":
		h.handleDeleteCategory(ctx, session, frame.Payload)
	case "update-data":
		h.handleUpdateData(ctx, session, frame.Payload)
	case "update-password":
		h.handleUpdatePassword(ctx, session, frame.Payload)
	case "switch-option":
		h.handleSwitchOption(ctx, session, frame.Payload)
	default:
		h.fail(session, frame.Event, "unsupported event")
	}
}

// fail reports a rejected operation to the session that requested it.
// Other sessions never see failures.
func (h *Handler) fail(session *wsSession, event, message string) {
	_ = session.peer.writeFrame(wsFrame{
		Event:   event,
		Payload: mustJSON(failurePayload{Success: false, Message: message}),
	})
}

func (h *Handler) failErr(ctx context.Context, session *wsSession, event string, err error) {
	h.logger.WarnContext(ctx, "Event rejected",
		log.FieldEvent, event,
		log.FieldUserID, session.userID,
		"error", err)
	h.fail(session, event, userMessage(err))
}

// userMessage maps service errors onto the messages surfaced to clients.
// Unexpected errors stay generic so internals never leak.
func userMessage(err error) string {
	var dup *services.DuplicateCategoryError
	if errors.As(err, &dup) {
		return dup.Error()
	}
	for _, known := range []error{
		services.ErrDuplicateMonth,
		services.ErrBudgetNotFound,
		services.ErrOverBudget,
		services.ErrBudgetHasSpend,
		services.ErrPasswordMismatch,
		services.ErrIncorrectPassword,
		services.ErrEmailTaken,
		services.ErrInvalidEmail,
		services.ErrSchemeNotFound,
		services.ErrExpenseNotFound,
		core.ErrInvalidMonth,
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrEmptyCategory,
		core.ErrNoCategories,
		core.ErrUnknownCategory,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "Something went wrong. Please try again"
}
