package realtime

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Hub) {
	r.HandleFunc("/ws", h.HandleWS).Methods(http.MethodGet)
}
