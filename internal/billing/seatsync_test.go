package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upravdom/internal/logs"
)

func TestMain(m *testing.M) {
	logs.Init(logs.Options{Level: "error"})
	m.Run()
}

type fakeProvider struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeProvider) UpdateSeats(_ context.Context, customerID string, _ int) error {
	f.mu.Lock()
	f.calls = append(f.calls, customerID)
	f.mu.Unlock()
	if err, ok := f.fail[customerID]; ok {
		return err
	}
	return nil
}

func TestSyncSeatsIsolatedFailure(t *testing.T) {
	p := &fakeProvider{fail: map[string]error{"cus_2": errors.New("boom")}}
	in := []Customer{
		{CustomerID: "cus_1", Seats: 5},
		{CustomerID: "cus_2", Seats: 8},
		{CustomerID: "cus_3", Seats: 2},
	}

	results := SyncSeats(context.Background(), p, in, 1)

	require.Len(t, results, 3)
	assert.Equal(t, "cus_1", results[0].CustomerID)
	assert.True(t, results[0].Success)
	assert.Equal(t, "cus_2", results[1].CustomerID)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "boom")
	assert.Equal(t, "cus_3", results[2].CustomerID)
	assert.True(t, results[2].Success)
}

func TestSyncSeatsInvalidID(t *testing.T) {
	p := &fakeProvider{}
	in := []Customer{
		{CustomerID: "cus_1", Seats: 1},
		{CustomerID: "  ", Seats: 3},
	}

	results := SyncSeats(context.Background(), p, in, 2)

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, ErrInvalidCustomerID.Error(), results[1].Error)
	// по пустому id внешний вызов не делается
	assert.NotContains(t, p.calls, "  ")
}

func TestSyncSeatsOrderUnderConcurrency(t *testing.T) {
	p := &fakeProvider{}
	var in []Customer
	for i := 0; i < 50; i++ {
		in = append(in, Customer{CustomerID: string(rune('a' + i%26)), Seats: i})
	}
	results := SyncSeats(context.Background(), p, in, 8)
	require.Len(t, results, 50)
	for i := range results {
		assert.Equal(t, in[i].CustomerID, results[i].CustomerID)
		assert.True(t, results[i].Success)
	}
}

func TestSyncSeatsEmptyInput(t *testing.T) {
	results := SyncSeats(context.Background(), &fakeProvider{}, nil, 4)
	assert.Empty(t, results)
}

type fakeSource struct {
	customers []Customer
	err       error
}

func (f *fakeSource) ListCustomers(context.Context) ([]Customer, error) {
	return f.customers, f.err
}

func TestSyncHandler(t *testing.T) {
	src := &fakeSource{customers: []Customer{{CustomerID: "cus_1", Seats: 4}}}
	h := NewHandler(src, &fakeProvider{}, 2)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/seats/sync", nil)
	rec := httptest.NewRecorder()
	h.SyncSeats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool             `json:"success"`
		Results []SeatSyncResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Results, 1)
	assert.True(t, body.Results[0].Success)
}

func TestSyncHandlerSourceFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("pg down")}
	h := NewHandler(src, &fakeProvider{}, 2)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/seats/sync", nil)
	rec := httptest.NewRecorder()
	h.SyncSeats(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "pg down")
}

func TestHTTPProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		http.Error(w, "no such customer", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "tok", 0)
	err := p.UpdateSeats(context.Background(), "cus_x", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPProviderOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 7, body["seats"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "tok", 0)
	require.NoError(t, p.UpdateSeats(context.Background(), "cus_ok", 7))
}
