package signedlink

import (
	"sync"
	"time"
)

// NonceStore отмечает использованные nonce (replay-защита поверх
// идемпотентности по статусу заявки).
type NonceStore interface {
	Seen(nonce string, at time.Time) (already bool, err error)
}

type MemNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
	ttl    time.Duration
}

func NewMemNonceStore(ttl time.Duration) *MemNonceStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &MemNonceStore{nonces: make(map[string]time.Time), ttl: ttl}
}

func (m *MemNonceStore) Seen(nonce string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// GC старых nonce
	cut := time.Now().Add(-m.ttl)
	for n, ts := range m.nonces {
		if ts.Before(cut) {
			delete(m.nonces, n)
		}
	}
	if _, ok := m.nonces[nonce]; ok {
		return true, nil
	}
	m.nonces[nonce] = at
	return false, nil
}
