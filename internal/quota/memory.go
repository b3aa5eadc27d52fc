package quota

import (
	"context"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is the default in-memory Store. Usage is lost on process
// restart; this is an explicitly best-effort limiter, not a billing record.
// A single mutex guards the whole map; it is held only around map mutation
// and never across network calls, so contention is bounded by the prune cost.
type MemoryStore struct {
	mu    sync.Mutex
	usage map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usage: make(map[string][]time.Time),
	}
}

// Count prunes and returns the in-window usage count for identity.
func (m *MemoryStore) Count(_ context.Context, identity string, windowStart time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prune(identity, windowStart)), nil
}

// Record prunes, appends now, and returns the post-increment count.
func (m *MemoryStore) Record(_ context.Context, identity string, now, windowStart time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamps := append(m.prune(identity, windowStart), now)
	m.usage[identity] = stamps
	return len(stamps), nil
}

// TryConsume admits and records the request only if fewer than limit units
// are in the window. Check and append share one critical section.
func (m *MemoryStore) TryConsume(_ context.Context, identity string, now, windowStart time.Time, limit int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamps := m.prune(identity, windowStart)
	if len(stamps) >= limit {
		return len(stamps), false, nil
	}
	stamps = append(stamps, now)
	m.usage[identity] = stamps
	return len(stamps), true, nil
}

// Reset drops all recorded usage.
func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usage = make(map[string][]time.Time)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// prune drops timestamps at or before windowStart and returns the survivors.
// Timestamps are appended in real time, so insertion order is chronological
// and the first in-window index splits stale from live entries.
// Caller must hold m.mu.
func (m *MemoryStore) prune(identity string, windowStart time.Time) []time.Time {
	stamps := m.usage[identity]
	cut := 0
	for cut < len(stamps) && !stamps[cut].After(windowStart) {
		cut++
	}
	if cut == 0 {
		return stamps
	}
	stamps = stamps[cut:]
	if len(stamps) == 0 {
		// Keep the map from accumulating identities with fully expired usage.
		delete(m.usage, identity)
		return nil
	}
	m.usage[identity] = stamps
	return stamps
}
