package ledger

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local [Ledger].
type Memory struct {
	seen sync.Map // int64 -> time.Time
	ttl  time.Duration
	now  func() time.Time
}

var _ Ledger = (*Memory)(nil)

// NewMemory creates a [Memory] ledger. A zero ttl remembers hits forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

// MarkSeen records id.
func (m *Memory) MarkSeen(_ context.Context, id int64) (bool, error) {
	now := m.now()
	for {
		prev, loaded := m.seen.LoadOrStore(id, now)
		if !loaded {
			return true, nil
		}
		if m.ttl <= 0 || now.Sub(prev.(time.Time)) < m.ttl {
			return false, nil
		}
		// expired; claim it unless another caller refreshed it first
		if m.seen.CompareAndSwap(id, prev, now) {
			return true, nil
		}
	}
}

// Close does nothing.
func (m *Memory) Close() error { return nil }
