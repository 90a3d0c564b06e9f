package accessreq

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Handler) {
	sub := r.PathPrefix("/api/v1/access-requests").Subrouter()
	sub.HandleFunc("", h.Submit).Methods(http.MethodPost)
	sub.HandleFunc("/approve", h.Approve).Methods(http.MethodGet)
}
