package accessreq

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upravdom/internal/approval"
	"upravdom/internal/logs"
	"upravdom/internal/models"
	"upravdom/internal/recaptcha"
	"upravdom/internal/repo"
	"upravdom/internal/signedlink"
)

func TestMain(m *testing.M) {
	logs.Init(logs.Options{Level: "error"})
	m.Run()
}

type fakeStore struct {
	created []repo.SubmitInput
	err     error
}

func (f *fakeStore) Create(_ context.Context, in repo.SubmitInput) (*models.AccessRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &models.AccessRequest{
		UUID:        uuid.NewString(),
		Name:        in.Name,
		Email:       in.Email,
		BuildingID:  in.BuildingID,
		ApartmentID: in.ApartmentID,
		Status:      models.AccessStatusPending,
	}, nil
}

type fakeDecider struct {
	out  approval.Outcome
	err  error
	seen []signedlink.Claims
}

func (f *fakeDecider) Decide(_ context.Context, c signedlink.Claims) (approval.Outcome, error) {
	f.seen = append(f.seen, c)
	if f.err != nil {
		return approval.Outcome{}, f.err
	}
	out := f.out
	out.RequestUUID = c.RequestUUID
	out.Action = c.Action
	return out, nil
}

type fakeMailer struct{ sent []string }

func (f *fakeMailer) Send(to, _, _, _ string) error {
	f.sent = append(f.sent, to)
	return nil
}

func newTestHandler(store *fakeStore, dec *fakeDecider, mail *fakeMailer) (*Handler, *signedlink.Signer) {
	signer := signedlink.New("link-secret", 48*time.Hour, "https://app.example.com")
	h := NewHandler(Options{
		Store:      store,
		Decider:    dec,
		Signer:     signer,
		Nonces:     signedlink.NewMemNonceStore(time.Hour),
		Mail:       mail,
		Captcha:    recaptcha.NopVerifier{},
		FormSecret: "form-secret",
		AdminEmail: "admin@example.com",
	})
	return h, signer
}

func submitBody(overrides map[string]string) []byte {
	m := map[string]string{
		"name":           "Иван Петров",
		"email":          "ivan@example.com",
		"buildingId":     "b-1",
		"buildingLabel":  "ул. Ленина, 10",
		"apartmentId":    "a-12",
		"apartmentLabel": "12",
		"recaptchaToken": "tok",
		"formSecret":     "form-secret",
	}
	for k, v := range overrides {
		if v == "" {
			delete(m, k)
		} else {
			m[k] = v
		}
	}
	b, _ := json.Marshal(m)
	return b
}

func TestSubmitOK(t *testing.T) {
	store := &fakeStore{}
	mail := &fakeMailer{}
	h, _ := newTestHandler(store, &fakeDecider{}, mail)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests", bytes.NewReader(submitBody(nil)))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, store.created, 1)
	assert.Equal(t, "a-12", store.created[0].ApartmentID)
	// письмо с двумя ссылками ушло админу
	assert.Equal(t, []string{"admin@example.com"}, mail.sent)
}

func TestSubmitMissingApartmentID(t *testing.T) {
	store := &fakeStore{}
	h, _ := newTestHandler(store, &fakeDecider{}, &fakeMailer{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests",
		bytes.NewReader(submitBody(map[string]string{"apartmentId": ""})))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "apartmentId")
	assert.Empty(t, store.created, "валидация не должна мутировать состояние")
}

func TestSubmitMissingSeveralFields(t *testing.T) {
	h, _ := newTestHandler(&fakeStore{}, &fakeDecider{}, &fakeMailer{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests",
		bytes.NewReader(submitBody(map[string]string{"name": "", "recaptchaToken": ""})))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name")
	assert.Contains(t, rec.Body.String(), "recaptchaToken")
}

func TestSubmitBadFormSecret(t *testing.T) {
	store := &fakeStore{}
	h, _ := newTestHandler(store, &fakeDecider{}, &fakeMailer{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/access-requests",
		bytes.NewReader(submitBody(map[string]string{"formSecret": "wrong"})))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.created)
}

func approveURL(t *testing.T, signer *signedlink.Signer, rid string, act signedlink.Action) string {
	t.Helper()
	u, err := signer.Issue(rid, act)
	require.NoError(t, err)
	return u.Path + "?" + u.RawQuery
}

func TestApproveHappyPath(t *testing.T) {
	dec := &fakeDecider{out: approval.Outcome{Applied: true}}
	h, signer := newTestHandler(&fakeStore{}, dec, &fakeMailer{})
	rid := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, approveURL(t, signer, rid, signedlink.ActionApprove), nil)
	rec := httptest.NewRecorder()
	h.Approve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Success  bool `json:"success"`
		Rejected bool `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.False(t, body.Rejected)
	require.Len(t, dec.seen, 1)
	assert.Equal(t, rid, dec.seen[0].RequestUUID)
}

func TestRejectHappyPath(t *testing.T) {
	dec := &fakeDecider{out: approval.Outcome{Applied: true}}
	h, signer := newTestHandler(&fakeStore{}, dec, &fakeMailer{})

	req := httptest.NewRequest(http.MethodGet, approveURL(t, signer, uuid.NewString(), signedlink.ActionReject), nil)
	rec := httptest.NewRecorder()
	h.Approve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rejected":true`)
}

func TestApproveAlreadyResolved(t *testing.T) {
	// approve-ссылка по уже отклонённой заявке: успех, rejected=false
	dec := &fakeDecider{out: approval.Outcome{Applied: false}}
	h, signer := newTestHandler(&fakeStore{}, dec, &fakeMailer{})

	req := httptest.NewRequest(http.MethodGet, approveURL(t, signer, uuid.NewString(), signedlink.ActionApprove), nil)
	rec := httptest.NewRecorder()
	h.Approve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success  bool `json:"success"`
		Rejected bool `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.False(t, body.Rejected)
}

func TestApproveBadSignature(t *testing.T) {
	dec := &fakeDecider{}
	h, signer := newTestHandler(&fakeStore{}, dec, &fakeMailer{})

	req := httptest.NewRequest(http.MethodGet,
		approveURL(t, signer, uuid.NewString(), signedlink.ActionApprove), nil)
	q := req.URL.Query()
	q.Set("sig", "deadbeef")
	req.URL.RawQuery = q.Encode()

	rec := httptest.NewRecorder()
	h.Approve(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, dec.seen, "невалидная подпись не должна доходить до мутаций")
}

func TestApproveExpired(t *testing.T) {
	dec := &fakeDecider{}
	store := &fakeStore{}
	mail := &fakeMailer{}
	signer := signedlink.New("link-secret", time.Nanosecond, "https://app.example.com")
	h := NewHandler(Options{
		Store: store, Decider: dec, Signer: signer,
		Mail: mail, Captcha: recaptcha.NopVerifier{}, FormSecret: "form-secret",
	})

	u, err := signer.Issue(uuid.NewString(), signedlink.ActionApprove)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond) // exp в секундах

	req := httptest.NewRequest(http.MethodGet, u.Path+"?"+u.RawQuery, nil)
	rec := httptest.NewRecorder()
	h.Approve(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
	assert.Empty(t, dec.seen)
}

func TestApproveUnknownRequest(t *testing.T) {
	dec := &fakeDecider{err: repo.ErrNotFound}
	h, signer := newTestHandler(&fakeStore{}, dec, &fakeMailer{})

	req := httptest.NewRequest(http.MethodGet, approveURL(t, signer, uuid.NewString(), signedlink.ActionApprove), nil)
	rec := httptest.NewRecorder()
	h.Approve(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
