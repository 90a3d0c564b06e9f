package billing

import (
	"context"
	"net/http"

	"upravdom/internal/models"
)

// CustomerSource отдаёт полный список клиентов с посчитанными местами.
type CustomerSource interface {
	ListCustomers(ctx context.Context) ([]Customer, error)
}

type Handler struct {
	src      CustomerSource
	provider Provider
	workers  int
}

func NewHandler(src CustomerSource, provider Provider, workers int) *Handler {
	return &Handler{src: src, provider: provider, workers: workers}
}

// POST /api/v1/billing/seats/sync
func (h *Handler) SyncSeats(w http.ResponseWriter, r *http.Request) {
	customers, err := h.src.ListCustomers(r.Context())
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, "customer list: "+err.Error())
		return
	}
	results := SyncSeats(r.Context(), h.provider, customers, h.workers)
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}
