package session

import (
	"context"
	"errors"
	"sync"
)

// ErrBackendUnavailable wraps transport failures of a [Backend].
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Backend is a flat, durable key-value area. Get reports ok=false for a missing key.
// Delete of a missing key is not an error.
type Backend interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryBackend keeps values in process memory.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
