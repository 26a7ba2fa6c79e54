package store

import (
	"context"
	"slices"
	"sync"
)

type memoryBackend struct {
	mu   sync.RWMutex
	docs map[int64][]byte
}

// NewMemory returns a process-local store.
func NewMemory() *DocStore {
	return newDocStore("memory", &memoryBackend{docs: make(map[int64][]byte)})
}

func (m *memoryBackend) get(_ context.Context, userID int64) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.docs[userID]
	return slices.Clone(p), ok, nil
}

func (m *memoryBackend) put(_ context.Context, userID int64, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = slices.Clone(payload)
	return nil
}

func (m *memoryBackend) startingOn(_ context.Context, _ string) (map[int64][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64][]byte, len(m.docs))
	for id, p := range m.docs {
		out[id] = slices.Clone(p)
	}
	return out, nil
}

func (m *memoryBackend) close() error { return nil }
