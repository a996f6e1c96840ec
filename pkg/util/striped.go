package util

import (
	"hash/fnv"
	"sync"
)

// StripedMutex serializes operations per string key using a fixed pool of
// mutexes. Two distinct keys may hash to the same stripe, which only reduces
// parallelism, never correctness. Equal keys always map to the same stripe.
type StripedMutex struct {
	stripes []sync.Mutex
}

// NewStripedMutex creates a pool with the given number of stripes.
// Sizes below 1 are rounded up to 1.
func NewStripedMutex(size int) *StripedMutex {
	if size < 1 {
		size = 1
	}
	return &StripedMutex{stripes: make([]sync.Mutex, size)}
}

// Lock acquires the stripe for key, blocking until it is available.
// There is no acquisition timeout; callers bound latency upstream.
func (s *StripedMutex) Lock(key string) {
	s.stripes[s.index(key)].Lock()
}

// Unlock releases the stripe for key.
func (s *StripedMutex) Unlock(key string) {
	s.stripes[s.index(key)].Unlock()
}

func (s *StripedMutex) index(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.stripes)))
}
