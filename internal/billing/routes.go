package billing

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Handler) {
	sub := r.PathPrefix("/api/v1/billing").Subrouter()
	sub.HandleFunc("/seats/sync", h.SyncSeats).Methods(http.MethodPost)
}
