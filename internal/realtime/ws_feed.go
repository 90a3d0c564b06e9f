package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSFeed — Feed поверх websocket-соединения с хабом.
type WSFeed struct {
	URL   string // ws://host/ws
	Token string
}

func (f *WSFeed) Subscribe(ctx context.Context) (<-chan ChangeEvent, func(), error) {
	hdr := http.Header{}
	if f.Token != "" {
		hdr.Set("Authorization", "Bearer "+f.Token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, f.URL, hdr)
	if err != nil {
		return nil, nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ch := make(chan ChangeEvent, 16)
	go func() {
		defer close(ch)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev ChangeEvent
			if json.Unmarshal(data, &ev) != nil || ev.RowUUID == "" {
				continue // ping или мусор
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	release := func() { once.Do(func() { _ = conn.Close() }) }
	return ch, release, nil
}
