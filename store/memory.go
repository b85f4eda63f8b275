package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryBackend keeps documents in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

// Seed stores an initial document.
func (m *MemoryBackend) Seed(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = slices.Clone(data)
}

func (m *MemoryBackend) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	return slices.Clone(data), nil
}

func (m *MemoryBackend) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = slices.Clone(data)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
