package feed

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Handler) {
	sub := r.PathPrefix("/api/v1").Subrouter()
	sub.HandleFunc("/buildings/{uuid}/announcements", h.ListAnnouncements).Methods(http.MethodGet)
	sub.HandleFunc("/buildings/{uuid}/announcements", h.CreateAnnouncement).Methods(http.MethodPost)
	sub.HandleFunc("/buildings/{uuid}/polls", h.ListPolls).Methods(http.MethodGet)
	sub.HandleFunc("/buildings/{uuid}/polls", h.CreatePoll).Methods(http.MethodPost)
	sub.HandleFunc("/polls/{uuid}/votes", h.Vote).Methods(http.MethodPost)
	sub.HandleFunc("/polls/{uuid}/results", h.Results).Methods(http.MethodGet)
}
