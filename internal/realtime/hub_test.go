package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upravdom/internal/models"
)

// end-to-end: hub -> websocket -> WSFeed -> Watcher.
func TestHubDeliversScopedEvents(t *testing.T) {
	hub := NewHub(func(r *http.Request) (string, error) {
		// подписка на строку из токена: "Bearer <rowUUID>"
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		return tok, nil
	})
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	var logouts atomic.Int32
	w := NewWatcher(&WSFeed{URL: wsURL, Token: "c-1"}, func() { logouts.Add(1) })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// дождёмся регистрации соединения в хабе
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.conns) == 1
	}, time.Second, 10*time.Millisecond)

	// событие чужой строки не доходит
	hub.Publish(ChangeEvent{Table: "clients", RowUUID: "c-other", Status: models.ClientStatusCanceled, UpdatedAt: time.Now()})
	// своё событие с допустимым статусом — доходит, logout нет
	hub.Publish(ChangeEvent{Table: "clients", RowUUID: "c-1", Status: models.ClientStatusActive, UpdatedAt: time.Now()})

	assert.Eventually(t, func() bool {
		return w.LastStatus() == models.ClientStatusActive
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), logouts.Load())

	// уход в canceled — принудительный logout
	hub.Publish(ChangeEvent{Table: "clients", RowUUID: "c-1", Status: models.ClientStatusCanceled, UpdatedAt: time.Now().Add(time.Second)})
	assert.Eventually(t, func() bool { return logouts.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHubRejectsUnauthorized(t *testing.T) {
	hub := NewHub(func(r *http.Request) (string, error) {
		return "", assert.AnError
	})
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSnapshotConvergesLateSubscriber(t *testing.T) {
	// отзыв случился до подписки: первый же кадр — текущее состояние
	// строки, и наблюдатель сразу гасит сессию
	hub := NewHub(func(r *http.Request) (string, error) {
		return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "), nil
	})
	hub.Snapshot = func(_ context.Context, rowUUID string) (ChangeEvent, error) {
		return ChangeEvent{
			Table:     "clients",
			RowUUID:   rowUUID,
			Status:    models.ClientStatusCanceled,
			UpdatedAt: time.Now(),
		}, nil
	}
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	var logouts atomic.Int32
	w := NewWatcher(&WSFeed{URL: wsURL, Token: "c-1"}, func() { logouts.Add(1) })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Eventually(t, func() bool { return logouts.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, models.ClientStatusCanceled, w.LastStatus())
}
