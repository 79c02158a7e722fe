package store

import (
	"sync"
)

// DefaultLimit is the number of hits a [MemoryStore] keeps by default.
const DefaultLimit = 100

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore keeps the most recent hits up to a fixed limit and evicts the
// oldest beyond it. Subscribers receive hits via buffered channels (buffer
// size 100). Sends are non-blocking; if a subscriber's buffer is full, the hit
// is dropped for that subscriber so the hit path never blocks.
type MemoryStore struct {
	mu          sync.RWMutex
	hits        []Hit // oldest first
	limit       int
	total       int64
	subscribers map[chan Hit]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a [MemoryStore] keeping up to limit hits.
// A non-positive limit means [DefaultLimit].
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{
		limit:       limit,
		subscribers: make(map[chan Hit]struct{}),
	}
}

// Add records a [Hit] and notifies all subscribers.
func (m *MemoryStore) Add(hit Hit) {
	m.mu.Lock()
	m.hits = append(m.hits, hit)
	if over := len(m.hits) - m.limit; over > 0 {
		m.hits = append(m.hits[:0:0], m.hits[over:]...)
	}
	m.total++
	m.mu.Unlock()

	m.notifySubscribers(hit)
}

// Recent returns a snapshot of stored hits, newest first.
func (m *MemoryStore) Recent() []Hit {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Hit, len(m.hits))
	for i, hit := range m.hits {
		out[len(m.hits)-1-i] = hit
	}
	return out
}

// Total returns the number of hits ever added.
func (m *MemoryStore) Total() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// Subscribe creates a new subscription and returns a channel for receiving hits.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Hit {
	ch := make(chan Hit, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Hit) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// map keys are the bidirectional channel; match by identity
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (m *MemoryStore) notifySubscribers(hit Hit) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- hit:
		default:
			// subscriber is slow, drop the hit
		}
	}
}
