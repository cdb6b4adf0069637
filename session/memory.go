package session

import (
	"context"
	"sync"
	"time"
)

// Maximum number of sessions to keep in memory.
const maxMemorySessions = 10000

type memoryEntry struct {
	acct    Account
	expires time.Time
}

// MemoryStore is a mutex-guarded in-process Store. Suitable for a single
// instance; use PostgresStore for multi-instance deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time // overridable for tests
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, token string) (Account, bool, error) {
	m.mu.RLock()
	entry, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return Account{}, false, nil
	}
	if m.now().After(entry.expires) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return Account{}, false, nil
	}
	return entry.acct, true, nil
}

func (m *MemoryStore) Put(ctx context.Context, token string, acct Account, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Clean expired sessions periodically to prevent unbounded growth.
	if len(m.sessions)%100 == 0 {
		m.cleanExpiredLocked()
	}
	if len(m.sessions) >= maxMemorySessions {
		m.cleanExpiredLocked()
	}

	m.sessions[token] = memoryEntry{acct: acct, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

// cleanExpiredLocked removes expired sessions. Callers must hold mu.
func (m *MemoryStore) cleanExpiredLocked() {
	now := m.now()
	for token, entry := range m.sessions {
		if now.After(entry.expires) {
			delete(m.sessions, token)
		}
	}
}
