package store

import (
	"context"
	"sync"
)

// MemoryKV is an in-process BlobStore, used for tests and ephemeral engines.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailSet, when non-nil, is returned by Set without writing.
	FailSet error
	// FailGet, when non-nil, is returned by Get.
	FailGet error
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailGet != nil {
		return nil, m.FailGet
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSet != nil {
		return m.FailSet
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// SetFailure makes subsequent Set calls fail with err (nil restores writes).
func (m *MemoryKV) SetFailure(err error) {
	m.mu.Lock()
	m.FailSet = err
	m.mu.Unlock()
}

// SetGetFailure makes subsequent Get calls fail with err (nil restores reads).
func (m *MemoryKV) SetGetFailure(err error) {
	m.mu.Lock()
	m.FailGet = err
	m.mu.Unlock()
}

// Move renames from to to. A missing key is not an error.
func (m *MemoryKV) Move(_ context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSet != nil {
		return m.FailSet
	}
	v, ok := m.data[from]
	if !ok {
		return nil
	}
	m.data[to] = v
	delete(m.data, from)
	return nil
}

// Keys returns the stored keys in no particular order.
func (m *MemoryKV) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// NewMemoryStore returns a Store backed by a fresh MemoryKV.
func NewMemoryStore() *KVStore {
	return NewKVStore(NewMemoryKV(), "")
}
