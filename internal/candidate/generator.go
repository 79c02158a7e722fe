// Package candidate produces identifiers to probe.
//
// Identifiers are drawn by weighted random sampling, not enumerated: most
// draws come from a "likely" sub-range where identifiers are more often
// allocated, the rest from the whole space so nothing is excluded.
package candidate

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Range is an inclusive identifier interval.
type Range struct {
	Min int64
	Max int64
}

// Contains reports whether id falls inside r.
func (r Range) Contains(id int64) bool {
	return id >= r.Min && id <= r.Max
}

func (r Range) validate(name string) error {
	if r.Min < 0 {
		return fmt.Errorf("%s range min must not be negative, got %d", name, r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%s range max (%d) must be >= min (%d)", name, r.Max, r.Min)
	}
	if r.Max-r.Min == math.MaxInt64 {
		return fmt.Errorf("%s range %d-%d is too wide to sample", name, r.Min, r.Max)
	}
	return nil
}

// Policy describes the sampling mix.
type Policy struct {
	// Full is the whole identifier space.
	Full Range
	// Likely is the biased sub-range, normally the lower end of the space.
	Likely Range
	// LikelyWeight is the probability of drawing from Likely.
	LikelyWeight float64
}

// DefaultPolicy samples 70% of candidates from 7,000,000-50,000,000 and the
// rest from 9,999,999-999,999,999.
func DefaultPolicy() Policy {
	return Policy{
		Full:         Range{Min: 9_999_999, Max: 999_999_999},
		Likely:       Range{Min: 7_000_000, Max: 50_000_000},
		LikelyWeight: 0.7,
	}
}

// Validate reports whether the policy can be sampled.
func (p Policy) Validate() error {
	if err := p.Full.validate("full"); err != nil {
		return err
	}
	if err := p.Likely.validate("likely"); err != nil {
		return err
	}
	if math.IsNaN(p.LikelyWeight) || p.LikelyWeight < 0 || p.LikelyWeight > 1 {
		return fmt.Errorf("likely weight must be within [0, 1], got %v", p.LikelyWeight)
	}
	return nil
}

// Generator draws candidates according to a [Policy].
//
// Safe for concurrent use: the only shared state is the random source,
// which is guarded by a mutex.
type Generator struct {
	policy Policy

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a [Generator]. A zero seed seeds from the clock.
func NewGenerator(policy Policy, seed int64) (*Generator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		policy: policy,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Next returns the next candidate identifier.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.policy.Full
	if g.rng.Float64() < g.policy.LikelyWeight {
		r = g.policy.Likely
	}
	return r.Min + g.rng.Int63n(r.Max-r.Min+1)
}

// Policy returns the sampling policy.
func (g *Generator) Policy() Policy {
	return g.policy
}
