// Package mirror implements the per-device cache of device-confirmed state.
// A mirror holds, for each entity handle, the last value the device
// acknowledged plus the time it was observed. It is a pure state holder:
// it knows nothing about the write protocol, and it is never speculative.
// Entries reflect either a successful local write or a device dump.
package mirror

import (
	"sync"
	"time"

	"github.com/grouplane-network/grouplane/pkg/model"
)

// Handle constrains mirror keys to device-scoped entity handles.
type Handle interface {
	comparable
	Device() model.DeviceID
}

// TimedEntry is a mirrored value plus its observation timestamp.
type TimedEntry[V any] struct {
	Value V
	Added time.Time
}

// Life returns how long ago the entry was observed.
func (e TimedEntry[V]) Life() time.Duration {
	return time.Since(e.Added)
}

// Mirror is a concurrent handle-to-entry map shared by all operations that
// touch a device. Single-entry mutation (Put/Remove) for a given handle must
// happen while holding that handle's partition lock in the driver. Sync is
// the documented exception: it runs at read-reconciliation cadence and may
// race with in-flight writes under an eventual-consistency contract; a
// later reconciliation pass corrects any drift.
type Mirror[H Handle, V any] struct {
	mu      sync.RWMutex
	entries map[H]TimedEntry[V]
	equal   func(a, b V) bool
}

// New creates a mirror. The equal function decides whether a synced value
// matches the cached one, in which case the original observation timestamp
// is preserved; a nil equal treats every synced value as new.
func New[H Handle, V any](equal func(a, b V) bool) *Mirror[H, V] {
	return &Mirror[H, V]{
		entries: make(map[H]TimedEntry[V]),
		equal:   equal,
	}
}

// Get returns the entry for a handle, if present.
func (m *Mirror[H, V]) Get(h H) (TimedEntry[V], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[h]
	return e, ok
}

// Put records a device-confirmed value for a handle.
func (m *Mirror[H, V]) Put(h H, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[h] = TimedEntry[V]{Value: v, Added: time.Now()}
}

// Remove drops the entry for a handle.
func (m *Mirror[H, V]) Remove(h H) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, h)
}

// GetAll returns a copy of all entries for a device.
func (m *Mirror[H, V]) GetAll(device model.DeviceID) map[H]TimedEntry[V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[H]TimedEntry[V])
	for h, e := range m.entries {
		if h.Device() == device {
			out[h] = e
		}
	}
	return out
}

// Sync replaces the mirror content for a device with exactly want: missing
// entries are added, extras dropped, and entries whose value is unchanged
// keep their original timestamp. Entries of other devices are untouched.
func (m *Mirror[H, V]) Sync(device model.DeviceID, want map[H]V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.entries {
		if h.Device() != device {
			continue
		}
		if _, ok := want[h]; !ok {
			delete(m.entries, h)
		}
	}
	now := time.Now()
	for h, v := range want {
		if cur, ok := m.entries[h]; ok && m.equal != nil && m.equal(cur.Value, v) {
			continue
		}
		m.entries[h] = TimedEntry[V]{Value: v, Added: now}
	}
}
