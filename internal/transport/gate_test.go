package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGate_AcquireRelease(t *testing.T) {
	g := NewGate(2)

	ctx := context.Background()
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if g.Inflight() != 2 {
		t.Errorf("Inflight() = %d, want 2", g.Inflight())
	}

	g.Release()
	if g.Inflight() != 1 {
		t.Errorf("Inflight() = %d, want 1", g.Inflight())
	}
}

func TestGate_AcquireHonoursContext(t *testing.T) {
	g := NewGate(1)
	_ = g.Acquire(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if g.Inflight() != 1 {
		t.Errorf("Inflight() = %d, want 1", g.Inflight())
	}
}

func TestGate_RaiseWakesWaiters(t *testing.T) {
	g := NewGate(1)
	_ = g.Acquire(context.Background())

	acquired := make(chan error, 1)
	go func() {
		acquired <- g.Acquire(context.Background())
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire() returned before capacity was raised")
	case <-time.After(20 * time.Millisecond):
	}

	g.Raise(2)

	select {
	case err := <-acquired:
		if err != nil {
			t.Errorf("Acquire() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() still blocked after Raise")
	}
}

func TestGate_MinimumCapacity(t *testing.T) {
	if got := NewGate(0).Capacity(); got != 1 {
		t.Errorf("Capacity() = %d, want 1", got)
	}
}
