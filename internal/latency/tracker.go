// Package latency keeps a bounded window of recent lookup durations.
package latency

import (
	"sort"
	"sync"
)

// DefaultWindow is the number of samples kept when no size is given.
const DefaultWindow = 200

// Tracker is a fixed-size FIFO window of latency samples in milliseconds.
//
// Appends from many workers are serialized by a mutex. Readers get a
// snapshot taken under the same mutex; the statistic itself is computed
// outside the lock.
type Tracker struct {
	mu      sync.Mutex
	samples []float64 // ring buffer
	next    int
	count   int
}

// NewTracker creates a [Tracker] holding at most size samples.
// A non-positive size falls back to [DefaultWindow].
func NewTracker(size int) *Tracker {
	if size <= 0 {
		size = DefaultWindow
	}
	return &Tracker{samples: make([]float64, size)}
}

// Record appends a sample, evicting the oldest one when the window is full.
func (t *Tracker) Record(ms float64) {
	t.mu.Lock()
	t.samples[t.next] = ms
	t.next = (t.next + 1) % len(t.samples)
	if t.count < len(t.samples) {
		t.count++
	}
	t.mu.Unlock()
}

// Len returns the number of samples currently held.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Capacity returns the maximum number of samples held.
func (t *Tracker) Capacity() int {
	return len(t.samples)
}

// Snapshot returns the current samples, oldest first.
func (t *Tracker) Snapshot() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]float64, 0, t.count)
	start := (t.next - t.count + len(t.samples)) % len(t.samples)
	for i := 0; i < t.count; i++ {
		out = append(out, t.samples[(start+i)%len(t.samples)])
	}
	return out
}

// MedianMs returns the median of the current samples, or 0 when empty.
// For an even number of samples the two middle values are averaged.
func (t *Tracker) MedianMs() float64 {
	return Median(t.Snapshot())
}

// Median returns the median of values without modifying the slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	m := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[m-1] + sorted[m]) / 2
	}
	return sorted[m]
}
