package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"upravdom/internal/logs"
)

// ChangeEvent — row-level изменение, которое рассылается подписчикам.
// UpdatedAt — монотонный ключ упорядочивания для наблюдателей.
type ChangeEvent struct {
	Table     string    `json:"table"`
	RowUUID   string    `json:"row_uuid"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	rowUUID string // строка client'а, на которую подписано соединение
}

// Hub держит активные websocket-подписки и раздаёт ChangeEvent'ы.
// Каждое соединение видит только события своей строки (scoped feed).
type Hub struct {
	mu         sync.RWMutex
	conns      map[*conn]bool
	register   chan *conn
	unregister chan *conn
	events     chan ChangeEvent
	done       chan struct{}
	stopOnce   sync.Once

	// Authorize отдаёт uuid строки клиента, на которую имеет право
	// подписаться данный запрос (или ошибку).
	Authorize func(r *http.Request) (rowUUID string, err error)

	// Snapshot (опционально) отдаёт текущее состояние строки. Новый
	// подписчик получает его первым событием, поэтому изменение,
	// случившееся до подписки или в щели реконнекта, не теряется.
	Snapshot func(ctx context.Context, rowUUID string) (ChangeEvent, error)
}

func NewHub(authorize func(r *http.Request) (string, error)) *Hub {
	return &Hub{
		conns:      make(map[*conn]bool),
		register:   make(chan *conn),
		unregister: make(chan *conn),
		events:     make(chan ChangeEvent, 256),
		done:       make(chan struct{}),
		Authorize:  authorize,
	}
}

func (h *Hub) Run() {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.conns[c] = true
			h.mu.Unlock()
			logs.Logger.Debugf("realtime: conn %s subscribed row=%s", c.id, c.rowUUID)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.conns[c]; ok {
				delete(h.conns, c)
				close(c.send)
			}
			h.mu.Unlock()
			logs.Logger.Debugf("realtime: conn %s gone", c.id)

		case ev := <-h.events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			h.mu.RLock()
			targets := make([]*conn, 0, len(h.conns))
			for c := range h.conns {
				if c.rowUUID == ev.RowUUID {
					targets = append(targets, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range targets {
				select {
				case c.send <- data:
				default:
					// забитый буфер — отключаем медленного клиента
					h.mu.Lock()
					if _, ok := h.conns[c]; ok {
						delete(h.conns, c)
						close(c.send)
					}
					h.mu.Unlock()
				}
			}

		case <-ping.C:
			h.mu.RLock()
			for c := range h.conns {
				select {
				case c.send <- []byte(`{"type":"ping"}`):
				default:
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for c := range h.conns {
				delete(h.conns, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() { h.stopOnce.Do(func() { close(h.done) }) }

// Publish отдаёт событие в хаб; при переполненном буфере событие
// дропается (подписчик живёт на last-write-wins по updated_at).
func (h *Hub) Publish(ev ChangeEvent) {
	select {
	case h.events <- ev:
	default:
		logs.Logger.Warnf("realtime: event buffer full, drop row=%s", ev.RowUUID)
	}
}

// GET /ws — upgrade и привязка соединения к строке клиента.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	rowUUID, err := h.Authorize(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.Logger.Errorf("realtime: upgrade: %v", err)
		return
	}
	c := &conn{
		id:      uuid.NewString(),
		ws:      ws,
		send:    make(chan []byte, 64),
		rowUUID: rowUUID,
	}
	h.register <- c

	if h.Snapshot != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ev, err := h.Snapshot(ctx, rowUUID)
		cancel()
		if err != nil {
			logs.Logger.Warnf("realtime: snapshot row=%s: %v", rowUUID, err)
		} else if data, mErr := json.Marshal(ev); mErr == nil {
			// буфер свежего соединения пуст, блокировки нет
			c.send <- data
		}
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *conn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

func (c *conn) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.ws.Close()
	}()
	c.ws.SetReadLimit(4096)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
