package session

import (
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store. Sessions are lost on
// server restart.
type MemoryStore struct {
	mu          sync.RWMutex
	data        map[string]Session
	idleTimeout time.Duration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory session store. idleTimeout of 0
// disables idle timeout checking.
func NewMemoryStore(idleTimeout time.Duration) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]Session),
		idleTimeout: idleTimeout,
	}
}

func (m *MemoryStore) Get(id string) (Session, bool) {
	m.mu.RLock()
	s, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if time.Now().After(s.ExpiresAt) {
		m.Delete(id)
		return Session{}, false
	}
	if m.idleTimeout > 0 && time.Since(s.LastAccessedAt) > m.idleTimeout {
		m.Delete(id)
		return Session{}, false
	}
	return s, true
}

func (m *MemoryStore) Put(s Session) {
	m.mu.Lock()
	m.data[s.ID] = s
	m.mu.Unlock()
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
}
