package session

import (
	"context"
	"maps"
	"sync"
)

// MemoryBackend хранит сессии в памяти процесса.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryBackend создаёт пустое хранилище в памяти.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string]string)}
}

func (m *MemoryBackend) Load(_ context.Context, ns string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.data[ns]))
	maps.Copy(out, m.data[ns])
	return out, nil
}

func (m *MemoryBackend) Save(_ context.Context, ns string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[ns]
	if !ok {
		cur = make(map[string]string, len(fields))
		m.data[ns] = cur
	}
	maps.Copy(cur, fields)
	return nil
}

func (m *MemoryBackend) SaveIf(_ context.Context, ns, field, want string, fields map[string]string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[ns]
	if !ok || cur[field] != want {
		return false, nil
	}
	maps.Copy(cur, fields)
	return true, nil
}

func (m *MemoryBackend) Replace(_ context.Context, ns string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := make(map[string]string, len(fields))
	maps.Copy(cur, fields)
	m.data[ns] = cur
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, ns)
	return nil
}
