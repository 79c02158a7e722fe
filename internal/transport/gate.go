package transport

import (
	"context"
	"sync"
)

// Gate bounds the number of concurrent holders. The bound can be raised
// while holders are waiting but never lowered.
type Gate struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	inflight int
}

// NewGate creates a [Gate] admitting up to capacity holders (at least one).
func NewGate(capacity int) *Gate {
	g := &Gate{capacity: max(1, capacity)}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Acquire waits for a free slot or until ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	// wake waiters when ctx ends so they can observe it
	stop := context.AfterFunc(ctx, func() {
		g.mu.Lock()
		g.cond.Broadcast()
		g.mu.Unlock()
	})
	defer stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	for g.inflight >= g.capacity {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g.inflight++
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.mu.Lock()
	if g.inflight > 0 {
		g.inflight--
	}
	g.cond.Broadcast()
	g.mu.Unlock()
}

// Raise lifts the capacity to n if n is larger than the current capacity.
func (g *Gate) Raise(n int) {
	g.mu.Lock()
	if n > g.capacity {
		g.capacity = n
		g.cond.Broadcast()
	}
	g.mu.Unlock()
}

// Capacity returns the current bound.
func (g *Gate) Capacity() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.capacity
}

// Inflight returns the number of current holders.
func (g *Gate) Inflight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight
}
