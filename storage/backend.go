// Package storage holds the client's persisted state: a string key/value
// backend standing in for browser local storage, and the two stores built on
// top of it.
package storage

import "sync"

// Backend is a local-storage style key/value store. Values are strings and a
// missing key is reported with ok=false, never as an error.
type Backend interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key string, value string) error
	RemoveItem(key string) error
}

// MemoryBackend keeps everything in process memory.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: map[string]string{}}
}

func (m *MemoryBackend) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[key]
	return value, ok, nil
}

func (m *MemoryBackend) SetItem(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryBackend) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
