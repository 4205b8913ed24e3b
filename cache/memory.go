package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is a process-local Cache for tests and single-instance local
// runs. Chosen at startup, never switched at call time.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	v   []byte
	exp time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memEntry{}}
}

func (m *Memory) Get(_ context.Context, k Key) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[k.String()]
	if !ok || time.Now().After(e.exp) {
		delete(m.entries, k.String())
		return nil, ErrMiss
	}
	return e.v, nil
}

func (m *Memory) Set(_ context.Context, k Key, v []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[k.String()] = memEntry{v: v, exp: time.Now().Add(ttl)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, tenantID string, scope Scope) error {
	prefix := Key{TenantID: tenantID, Scope: scope}.String()

	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}
