package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"upravdom/internal/models"
	"upravdom/internal/repo"
	"upravdom/internal/viewer"
)

type FeedStore interface {
	ListAnnouncements(ctx context.Context, buildingID uint, limit int) ([]models.Announcement, error)
	CreateAnnouncement(ctx context.Context, buildingID uint, authorUUID, title, body string) (*models.Announcement, error)
	ListPolls(ctx context.Context, buildingID uint) ([]models.Poll, error)
	CreatePoll(ctx context.Context, buildingID uint, question string, options []string, closesAt *time.Time) (*models.Poll, error)
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	Vote(ctx context.Context, pollID uint, voterUUID string, option int) error
	PollResults(ctx context.Context, pollID uint) (map[int]int, error)
}

type BuildingSource interface {
	GetBuilding(ctx context.Context, id string) (*models.Building, error)
}

type Authenticator interface {
	Resolve(ctx context.Context, token string) (viewer.Principal, error)
}

// Лента дома: объявления и опросы. Тонкий CRUD поверх FeedStore.
type Handler struct {
	feed  FeedStore
	props BuildingSource
	auth  Authenticator
}

func NewHandler(feed FeedStore, props BuildingSource, auth Authenticator) *Handler {
	return &Handler{feed: feed, props: props, auth: auth}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (viewer.Principal, bool) {
	p, err := h.auth.Resolve(r.Context(), viewer.BearerToken(r))
	if err != nil {
		models.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return viewer.Principal{}, false
	}
	return p, true
}

func (h *Handler) building(w http.ResponseWriter, r *http.Request) (*models.Building, bool) {
	b, err := h.props.GetBuilding(r.Context(), mux.Vars(r)["uuid"])
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteFail(w, http.StatusNotFound, "building not found")
		return nil, false
	}
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return b, true
}

// GET /api/v1/buildings/{uuid}/announcements
func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}
	b, ok := h.building(w, r)
	if !ok {
		return
	}
	rows, err := h.feed.ListAnnouncements(r.Context(), b.ID, 0)
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusOK, rows)
}

// POST /api/v1/buildings/{uuid}/announcements
func (h *Handler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	// публикуют только УК и её сотрудники
	if p.Kind() != viewer.KindClient && p.Kind() != viewer.KindClientMember {
		models.WriteFail(w, http.StatusForbidden, "only client staff can post announcements")
		return
	}
	b, ok := h.building(w, r)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		models.WriteFail(w, http.StatusBadRequest, "title is required")
		return
	}
	a, err := h.feed.CreateAnnouncement(r.Context(), b.ID, p.UserData().UUID, req.Title, req.Body)
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusCreated, a)
}

// GET /api/v1/buildings/{uuid}/polls
func (h *Handler) ListPolls(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}
	b, ok := h.building(w, r)
	if !ok {
		return
	}
	rows, err := h.feed.ListPolls(r.Context(), b.ID)
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusOK, rows)
}

// POST /api/v1/buildings/{uuid}/polls
func (h *Handler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if p.Kind() != viewer.KindClient && p.Kind() != viewer.KindClientMember {
		models.WriteFail(w, http.StatusForbidden, "only client staff can create polls")
		return
	}
	b, ok := h.building(w, r)
	if !ok {
		return
	}
	var req struct {
		Question string     `json:"question"`
		Options  []string   `json:"options"`
		ClosesAt *time.Time `json:"closesAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		strings.TrimSpace(req.Question) == "" || len(req.Options) < 2 {
		models.WriteFail(w, http.StatusBadRequest, "question and at least two options are required")
		return
	}
	poll, err := h.feed.CreatePoll(r.Context(), b.ID, req.Question, req.Options, req.ClosesAt)
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusCreated, poll)
}

// POST /api/v1/polls/{uuid}/votes
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	poll, err := h.feed.GetPoll(r.Context(), mux.Vars(r)["uuid"])
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteFail(w, http.StatusNotFound, "poll not found")
		return
	}
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if poll.Status != models.PollStatusOpen {
		models.WriteFail(w, http.StatusConflict, "poll is closed")
		return
	}

	var req struct {
		Option *int `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Option == nil {
		models.WriteFail(w, http.StatusBadRequest, "option is required")
		return
	}
	var opts []string
	if err := json.Unmarshal(poll.Options, &opts); err != nil || *req.Option < 0 || *req.Option >= len(opts) {
		models.WriteFail(w, http.StatusBadRequest, "option out of range")
		return
	}

	err = h.feed.Vote(r.Context(), poll.ID, p.UserData().UUID, *req.Option)
	if errors.Is(err, repo.ErrAlreadyVoted) {
		models.WriteFail(w, http.StatusConflict, "already voted")
		return
	}
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteOK(w, nil)
}

// GET /api/v1/polls/{uuid}/results
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.principal(w, r); !ok {
		return
	}
	poll, err := h.feed.GetPoll(r.Context(), mux.Vars(r)["uuid"])
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteFail(w, http.StatusNotFound, "poll not found")
		return
	}
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	counts, err := h.feed.PollResults(r.Context(), poll.ID)
	if err != nil {
		models.WriteFail(w, http.StatusInternalServerError, err.Error())
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"poll": poll, "counts": counts})
}
