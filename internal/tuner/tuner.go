// Package tuner adjusts the worker pool's target concurrency from observed
// lookup latency.
//
// The target lives in a [Setting]: written only by the [Tuner], read by the
// pool's spawn monitor. Every evaluation reads the median latency, grows the
// target when the remote service is fast, shrinks it when slow, and holds
// otherwise. Bounds are always respected.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Setting is the process-wide concurrency target.
type Setting struct {
	target   atomic.Int64
	min, max int
}

// NewSetting creates a [Setting] bounded by [min, max] and starting at
// initial, clamped into the bounds.
func NewSetting(min, max, initial int) (*Setting, error) {
	if min < 1 {
		return nil, fmt.Errorf("min concurrency must be at least 1, got %d", min)
	}
	if max < min {
		return nil, fmt.Errorf("max concurrency (%d) must be >= min concurrency (%d)", max, min)
	}
	s := &Setting{min: min, max: max}
	s.target.Store(int64(clamp(initial, min, max)))
	return s, nil
}

// Target returns the current target.
func (s *Setting) Target() int {
	return int(s.target.Load())
}

// Min returns the lower bound.
func (s *Setting) Min() int { return s.min }

// Max returns the upper bound.
func (s *Setting) Max() int { return s.max }

func (s *Setting) set(n int) {
	s.target.Store(int64(clamp(n, s.min, s.max)))
}

// Config holds the tuning thresholds and factors.
type Config struct {
	// Interval between evaluations.
	Interval time.Duration
	// LowLatencyMs: a median below this grows the target.
	LowLatencyMs float64
	// HighLatencyMs: a median above this shrinks the target.
	HighLatencyMs float64
	// GrowFactor: new target is floor(target*GrowFactor)+1.
	GrowFactor float64
	// ShrinkFactor: new target is floor(target*ShrinkFactor).
	ShrinkFactor float64
}

// DefaultConfig returns the standard thresholds: grow under 250ms, shrink
// over 600ms, evaluated every 5 seconds.
func DefaultConfig() Config {
	return Config{
		Interval:      5 * time.Second,
		LowLatencyMs:  250,
		HighLatencyMs: 600,
		GrowFactor:    1.15,
		ShrinkFactor:  0.85,
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("autotune interval must be positive")
	}
	if c.LowLatencyMs <= 0 || c.HighLatencyMs <= 0 {
		return errors.New("autotune latency thresholds must be positive")
	}
	if c.LowLatencyMs > c.HighLatencyMs {
		return fmt.Errorf("autotune low latency (%vms) must not exceed high latency (%vms)", c.LowLatencyMs, c.HighLatencyMs)
	}
	if c.GrowFactor < 1 {
		return fmt.Errorf("autotune grow factor must be >= 1, got %v", c.GrowFactor)
	}
	if c.ShrinkFactor <= 0 || c.ShrinkFactor >= 1 {
		return fmt.Errorf("autotune shrink factor must be in (0, 1), got %v", c.ShrinkFactor)
	}
	return nil
}

// LatencySource provides the median latency of recent lookups.
type LatencySource interface {
	MedianMs() float64
}

// CapacityRaiser is told the new target after every evaluation so that the
// transport can hold at least that many connections.
type CapacityRaiser interface {
	EnsureCapacity(n int)
}

// Decision describes what an evaluation did.
type Decision int

const (
	Hold Decision = iota
	Grow
	Shrink
	NoData
)

func (d Decision) String() string {
	switch d {
	case Grow:
		return "grow"
	case Shrink:
		return "shrink"
	case NoData:
		return "no-data"
	default:
		return "hold"
	}
}

// Tuner periodically moves the [Setting] toward the latency sweet spot.
type Tuner struct {
	setting *Setting
	latency LatencySource
	raiser  CapacityRaiser
	cfg     Config
	logger  *slog.Logger
}

// New creates a [Tuner]. raiser may be nil.
func New(setting *Setting, latency LatencySource, raiser CapacityRaiser, cfg Config, logger *slog.Logger) *Tuner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tuner{
		setting: setting,
		latency: latency,
		raiser:  raiser,
		cfg:     cfg,
		logger:  logger,
	}
}

// Evaluate performs one tuning step and returns what it decided.
func (t *Tuner) Evaluate() Decision {
	med := t.latency.MedianMs()
	if med == 0 {
		return NoData
	}

	decision := Hold
	cur := t.setting.Target()
	switch {
	case med < t.cfg.LowLatencyMs && cur < t.setting.Max():
		next := int(math.Floor(float64(cur)*t.cfg.GrowFactor)) + 1
		t.setting.set(next)
		decision = Grow
		t.logger.Info("auto-tune: increasing concurrency",
			"from", cur,
			"to", t.setting.Target(),
			"median_ms", med,
		)
	case med > t.cfg.HighLatencyMs && cur > t.setting.Min():
		next := int(math.Floor(float64(cur) * t.cfg.ShrinkFactor))
		t.setting.set(next)
		decision = Shrink
		t.logger.Info("auto-tune: decreasing concurrency",
			"from", cur,
			"to", t.setting.Target(),
			"median_ms", med,
		)
	}

	if t.raiser != nil {
		t.raiser.EnsureCapacity(t.setting.Target())
	}
	return decision
}

// Run evaluates on every tick until ctx is cancelled.
func (t *Tuner) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Evaluate()
		}
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
