package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"upravdom/internal/logs"
	"upravdom/internal/models"
)

// Feed — транспорт подписки на события одной строки. Release обязан
// освобождать подписку на любом пути выхода.
type Feed interface {
	Subscribe(ctx context.Context) (events <-chan ChangeEvent, release func(), err error)
}

type WatcherState int32

const (
	StateIdle WatcherState = iota
	StateSubscribing
	StateSubscribed
	StateUnsubscribed
)

var ErrAlreadyStarted = errors.New("watcher already started")

// Watcher следит за статусом подписки клиента и дергает OnLogout,
// как только статус уходит из разрешённого набора. Независим от
// транспорта (Feed), поэтому тестируется без websocket'а.
//
// Гарантии:
//   - события применяются по возрастанию UpdatedAt: опоздавшее старое
//     событие не воскресит отозванную сессию;
//   - OnLogout вызывается не более одного раза;
//   - обрыв транспорта — не повод для logout: одна попытка переподключения,
//     после второй неудачи наблюдатель молча гаснет;
//   - Stop() освобождает подписку на любом пути, включая обрыв мид-коннект.
type Watcher struct {
	Feed           Feed
	Allowed        map[string]bool // статусы, при которых сессия живёт
	OnLogout       func()
	ReconnectDelay time.Duration

	state      atomic.Int32
	lastStatus atomic.Value // string: последний применённый статус
	logoutOnce sync.Once

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWatcher(feed Feed, onLogout func()) *Watcher {
	return &Watcher{
		Feed: feed,
		Allowed: map[string]bool{
			models.ClientStatusActive:   true,
			models.ClientStatusTrialing: true,
		},
		OnLogout:       onLogout,
		ReconnectDelay: time.Second,
	}
}

func (w *Watcher) State() WatcherState { return WatcherState(w.state.Load()) }

// LastStatus — последний применённый (не отброшенный) статус строки.
func (w *Watcher) LastStatus() string {
	s, _ := w.lastStatus.Load().(string)
	return s
}

// Start открывает подписку и запускает цикл обработки. Повторный
// Start без Stop — ошибка.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateSubscribing)) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	events, release, err := w.Feed.Subscribe(ctx)
	if err != nil {
		cancel()
		w.state.Store(int32(StateUnsubscribed))
		close(w.done)
		return err
	}
	w.state.Store(int32(StateSubscribed))

	go w.loop(ctx, events, release)
	return nil
}

// Stop гасит подписку; идемпотентен, безопасен в любом состоянии.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	w.state.Store(int32(StateUnsubscribed))
}

func (w *Watcher) loop(ctx context.Context, events <-chan ChangeEvent, release func()) {
	defer close(w.done)
	defer func() {
		if release != nil {
			release()
		}
		w.state.Store(int32(StateUnsubscribed))
	}()

	var latest time.Time
	reconnected := false

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				// обрыв транспорта
				if ctx.Err() != nil {
					return
				}
				if reconnected {
					logs.Logger.Warnf("realtime watcher: transport lost twice, giving up")
					return
				}
				reconnected = true
				if release != nil {
					release()
					release = nil
				}
				select {
				case <-time.After(w.ReconnectDelay):
				case <-ctx.Done():
					return
				}
				var err error
				events, release, err = w.Feed.Subscribe(ctx)
				if err != nil {
					logs.Logger.Warnf("realtime watcher: reconnect failed: %v", err)
					return
				}
				logs.Logger.Infof("realtime watcher: reconnected")
				continue
			}

			// устаревшее событие — дропаем, порядок по updated_at
			if !ev.UpdatedAt.After(latest) {
				continue
			}
			latest = ev.UpdatedAt
			w.lastStatus.Store(ev.Status)

			if !w.Allowed[ev.Status] {
				w.logoutOnce.Do(func() {
					logs.Logger.Infof("realtime watcher: status %q -> forced logout", ev.Status)
					if w.OnLogout != nil {
						w.OnLogout()
					}
				})
			}
		}
	}
}
