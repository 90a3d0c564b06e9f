package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"upravdom/internal/models"
	"upravdom/internal/repo"
	"upravdom/internal/viewer"
)

type fakeFeed struct {
	announcements []models.Announcement
	polls         map[string]*models.Poll
	votes         map[string]int // "pollID/voter" -> option
}

func newFakeFeed(polls ...*models.Poll) *fakeFeed {
	f := &fakeFeed{polls: map[string]*models.Poll{}, votes: map[string]int{}}
	for _, p := range polls {
		f.polls[p.UUID] = p
	}
	return f
}

func (f *fakeFeed) ListAnnouncements(_ context.Context, buildingID uint, _ int) ([]models.Announcement, error) {
	var out []models.Announcement
	for _, a := range f.announcements {
		if a.BuildingID == buildingID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeFeed) CreateAnnouncement(_ context.Context, buildingID uint, authorUUID, title, body string) (*models.Announcement, error) {
	a := models.Announcement{UUID: "ann-1", BuildingID: buildingID, AuthorUUID: authorUUID, Title: title, Body: body}
	f.announcements = append(f.announcements, a)
	return &a, nil
}

func (f *fakeFeed) ListPolls(_ context.Context, buildingID uint) ([]models.Poll, error) {
	var out []models.Poll
	for _, p := range f.polls {
		if p.BuildingID == buildingID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeFeed) CreatePoll(_ context.Context, buildingID uint, question string, options []string, _ *time.Time) (*models.Poll, error) {
	raw, _ := json.Marshal(options)
	p := &models.Poll{UUID: "poll-new", BuildingID: buildingID, Question: question,
		Options: datatypes.JSON(raw), Status: models.PollStatusOpen}
	f.polls[p.UUID] = p
	return p, nil
}

func (f *fakeFeed) GetPoll(_ context.Context, id string) (*models.Poll, error) {
	p, ok := f.polls[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeFeed) Vote(_ context.Context, pollID uint, voterUUID string, option int) error {
	key := strconv.FormatUint(uint64(pollID), 10) + "/" + voterUUID
	if _, ok := f.votes[key]; ok {
		return repo.ErrAlreadyVoted
	}
	f.votes[key] = option
	return nil
}

func (f *fakeFeed) PollResults(_ context.Context, _ uint) (map[int]int, error) {
	counts := map[int]int{}
	for _, opt := range f.votes {
		counts[opt]++
	}
	return counts, nil
}

type fakeBuildings struct{ rows map[string]*models.Building }

func (f *fakeBuildings) GetBuilding(_ context.Context, id string) (*models.Building, error) {
	b, ok := f.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return b, nil
}

type fakeAuth struct{ p viewer.Principal }

func (f *fakeAuth) Resolve(_ context.Context, token string) (viewer.Principal, error) {
	if token == "" {
		return viewer.Principal{}, viewer.ErrUnauthenticated
	}
	return f.p, nil
}

func staffAuth() *fakeAuth {
	return &fakeAuth{p: viewer.ClientPrincipal(&models.Client{UUID: "cl-1", Name: "УК Ромашка"})}
}

func tenantAuth() *fakeAuth {
	return &fakeAuth{p: viewer.TenantPrincipal(&models.Tenant{UUID: "t-1", Name: "Иван"})}
}

func openPoll() *models.Poll {
	return &models.Poll{
		ID: 7, UUID: "poll-7", BuildingID: 1, Question: "Шлагбаум?",
		Options: datatypes.JSON([]byte(`["за","против"]`)),
		Status:  models.PollStatusOpen,
	}
}

func newRouter(f *fakeFeed, auth *fakeAuth) *mux.Router {
	props := &fakeBuildings{rows: map[string]*models.Building{
		"b-1": {ID: 1, UUID: "b-1", Address: "ул. Ленина, 10"},
	}}
	r := mux.NewRouter()
	RegisterRoutes(r, NewHandler(f, props, auth))
	return r
}

func do(r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAnnouncementStaffOnly(t *testing.T) {
	f := newFakeFeed()
	r := newRouter(f, staffAuth())

	rec := do(r, http.MethodPost, "/api/v1/buildings/b-1/announcements",
		`{"title":"Отключение воды","body":"завтра с 10 до 14"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, f.announcements, 1)
	assert.Equal(t, "cl-1", f.announcements[0].AuthorUUID)

	// жилец публиковать не может
	rec = do(newRouter(f, tenantAuth()), http.MethodPost, "/api/v1/buildings/b-1/announcements",
		`{"title":"x","body":"y"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, f.announcements, 1)
}

func TestCreateAnnouncementValidation(t *testing.T) {
	r := newRouter(newFakeFeed(), staffAuth())
	rec := do(r, http.MethodPost, "/api/v1/buildings/b-1/announcements", `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/buildings/nope/announcements", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePollRequiresTwoOptions(t *testing.T) {
	r := newRouter(newFakeFeed(), staffAuth())
	rec := do(r, http.MethodPost, "/api/v1/buildings/b-1/polls",
		`{"question":"Шлагбаум?","options":["за"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/buildings/b-1/polls",
		`{"question":"Шлагбаум?","options":["за","против"]}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestVoteFlow(t *testing.T) {
	f := newFakeFeed(openPoll())
	r := newRouter(f, tenantAuth())

	rec := do(r, http.MethodPost, "/api/v1/polls/poll-7/votes", `{"option":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// повторный голос того же жильца
	rec = do(r, http.MethodPost, "/api/v1/polls/poll-7/votes", `{"option":0}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// индекс за пределами вариантов
	rec = do(r, http.MethodPost, "/api/v1/polls/poll-7/votes", `{"option":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/polls/nope/votes", `{"option":0}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVoteClosedPoll(t *testing.T) {
	p := openPoll()
	p.Status = models.PollStatusClosed
	r := newRouter(newFakeFeed(p), tenantAuth())

	rec := do(r, http.MethodPost, "/api/v1/polls/poll-7/votes", `{"option":0}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResults(t *testing.T) {
	f := newFakeFeed(openPoll())
	f.votes["7/t-1"] = 1
	f.votes["7/t-2"] = 1
	f.votes["7/t-3"] = 0
	r := newRouter(f, tenantAuth())

	rec := do(r, http.MethodGet, "/api/v1/polls/poll-7/results", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Counts["1"])
	assert.Equal(t, 1, body.Counts["0"])
}
