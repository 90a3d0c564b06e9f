package adminapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"upravdom/internal/logs"
	"upravdom/internal/models"
	"upravdom/internal/realtime"
	"upravdom/internal/repo"
	"upravdom/internal/viewer"
)

var allowedStatuses = map[string]bool{
	models.ClientStatusActive:   true,
	models.ClientStatusTrialing: true,
	models.ClientStatusPastDue:  true,
	models.ClientStatusCanceled: true,
}

// Статусы, при которых сессии клиента продолжают жить.
var liveStatuses = map[string]bool{
	models.ClientStatusActive:   true,
	models.ClientStatusTrialing: true,
}

type ClientStatusStore interface {
	UpdateStatus(ctx context.Context, id, status string) (*models.Client, error)
}

type SessionRevoker interface {
	DeleteForSubject(ctx context.Context, subjectUUID string) error
}

type RequestQueue interface {
	ListPending(ctx context.Context, limit int) ([]models.AccessRequest, error)
}

type Publisher interface {
	Publish(ev realtime.ChangeEvent)
}

type Authenticator interface {
	Resolve(ctx context.Context, token string) (viewer.Principal, error)
}

// Операторские ручки: статус подписки клиента и очередь заявок.
type Handler struct {
	clients  ClientStatusStore
	requests RequestQueue
	auth     Authenticator
	hub      Publisher
	sessions SessionRevoker
}

func NewHandler(clients ClientStatusStore, requests RequestQueue, auth Authenticator, hub Publisher, sessions SessionRevoker) *Handler {
	return &Handler{clients: clients, requests: requests, auth: auth, hub: hub, sessions: sessions}
}

func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.auth.Resolve(r.Context(), viewer.BearerToken(r))
		if err != nil || p.Kind() != viewer.KindAdmin {
			models.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// PATCH /api/v1/admin/clients/{uuid}/status
// Смена статуса уходит в realtime-хаб: активные сессии клиента
// получают событие и разлогиниваются без ожидания навигации.
func (h *Handler) UpdateClientStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !allowedStatuses[req.Status] {
		models.WriteFail(w, http.StatusBadRequest, "status must be one of active|trialing|past_due|canceled")
		return
	}

	c, err := h.clients.UpdateStatus(r.Context(), mux.Vars(r)["uuid"], req.Status)
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteFail(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.hub.Publish(realtime.ChangeEvent{
		Table:     "clients",
		RowUUID:   c.UUID,
		Status:    c.Status,
		UpdatedAt: c.UpdatedAt,
	})

	// Подписка погасла — рвём и серверные сессии клиента, а не только
	// live-слушателей хаба.
	if !liveStatuses[c.Status] && h.sessions != nil {
		if err := h.sessions.DeleteForSubject(r.Context(), c.UUID); err != nil {
			logs.Logger.Errorf("client %s: session revoke: %v", c.UUID, err)
		}
	}
	models.WriteJSON(w, http.StatusOK, c)
}

// GET /api/v1/admin/access-requests — очередь pending-заявок.
func (h *Handler) ListAccessRequests(w http.ResponseWriter, r *http.Request) {
	rows, err := h.requests.ListPending(r.Context(), 0)
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusOK, rows)
}

func RegisterRoutes(r *mux.Router, h *Handler) {
	sub := r.PathPrefix("/api/v1/admin").Subrouter()
	sub.HandleFunc("/clients/{uuid}/status", h.requireAdmin(h.UpdateClientStatus)).Methods(http.MethodPatch)
	sub.HandleFunc("/access-requests", h.requireAdmin(h.ListAccessRequests)).Methods(http.MethodGet)
}
