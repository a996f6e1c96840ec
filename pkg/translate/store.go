package translate

import "sync"

// Store persists translation records keyed by handle key. The driver
// mutates the store only while holding the handle's partition lock, except
// for bulk forget during batched cleanup (see the driver's locking notes).
type Store interface {
	Get(key string) (Record, bool)
	Put(key string, r Record)
	Delete(key string)
}

// MemoryStore is the default, in-process store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get returns the record for a handle key.
func (s *MemoryStore) Get(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	return r, ok
}

// Put stores a record, replacing any previous one.
func (s *MemoryStore) Put(key string, r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = r
}

// Delete removes a record.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
