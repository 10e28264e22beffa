package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. Nothing survives a restart;
// it is meant for tests and for short-lived tools.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (ms *MemoryStore) Get(_ context.Context, path string) (*Entry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entry, ok := ms.entries[path]
	if !ok {
		return nil, ErrNotFound
	}
	entry.Body = append([]byte(nil), entry.Body...)
	return &entry, nil
}

func (ms *MemoryStore) Put(_ context.Context, entry *Entry) error {
	stored := *entry
	stored.Body = append([]byte(nil), entry.Body...)

	ms.mu.Lock()
	ms.entries[entry.Path] = stored
	ms.mu.Unlock()
	return nil
}

// Len returns the number of stored paths.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.entries)
}

func (ms *MemoryStore) Close() error {
	return nil
}
