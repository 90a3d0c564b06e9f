package viewer

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"upravdom/internal/models"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(r *Resolver) *Handler { return &Handler{resolver: r} }

// BearerToken достаёт токен из Authorization либо из ?token=
// (второе — для браузерного websocket, где заголовки не выставить).
func BearerToken(r *http.Request) string {
	const p = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, p) {
		return strings.TrimPrefix(auth, p)
	}
	return r.URL.Query().Get("token")
}

// GET /api/v1/viewer
func (h *Handler) GetViewer(w http.ResponseWriter, r *http.Request) {
	p, err := h.resolver.Resolve(r.Context(), BearerToken(r))
	if err != nil {
		models.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	models.WriteJSON(w, http.StatusOK, p)
}

func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/api/v1/viewer", h.GetViewer).Methods(http.MethodGet)
}
