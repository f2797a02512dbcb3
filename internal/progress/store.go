// Package progress provides the key-value store behind catalog progress
// tracking. The interface is deliberately narrow — get a blob, set a blob —
// so the catalog logic never touches the persistence mechanism directly and
// any backend can stand in (the in-memory store for tests, SQLite for the
// service).
package progress

import "sync"

// Store is a flat key-value blob store. Keys are namespaced event keys
// (see catalog.Tracker); values are opaque JSON blobs.
type Store interface {
	// Get returns the stored blob for key. ok is false when the key has
	// never been written.
	Get(key string) (value []byte, ok bool, err error)
	// Set durably stores the blob under key, replacing any prior value.
	Set(key string, value []byte) error
}

// MemoryStore is an in-process Store for tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}
