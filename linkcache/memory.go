package linkcache

import (
	"context"
	"sync"
	"time"
)

// Memory is a thread-safe in-process Cache. Links are lost on restart
// and are not visible to other processes, so it is only suitable for
// single-process deployments and tests; use Redis otherwise.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

type memoryEntry struct {
	sessionRef string
	expiresAt  time.Time
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an empty in-memory link cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]memoryEntry)}
}

func (m *Memory) Put(_ context.Context, sid, sessionRef string, ttl time.Duration) error {
	m.mu.Lock()
	m.data[sid] = memoryEntry{
		sessionRef: sessionRef,
		expiresAt:  time.Now().Add(ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, sid string) (string, error) {
	m.mu.RLock()
	entry, ok := m.data[sid]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.data, sid)
		m.mu.Unlock()
		return "", ErrNotFound
	}
	return entry.sessionRef, nil
}

// Len reports the number of live entries. Expired entries that have not
// been read since expiry still count.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
