package tuner

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedLatency reports a constant median.
type fixedLatency struct {
	ms atomic.Value
}

func newFixedLatency(ms float64) *fixedLatency {
	f := &fixedLatency{}
	f.ms.Store(ms)
	return f
}

func (f *fixedLatency) MedianMs() float64 { return f.ms.Load().(float64) }

// recordingRaiser remembers the largest capacity it was asked for.
type recordingRaiser struct {
	calls int
	last  int
}

func (r *recordingRaiser) EnsureCapacity(n int) {
	r.calls++
	r.last = n
}

func TestNewSetting(t *testing.T) {
	tests := []struct {
		name          string
		min, max, ini int
		wantTarget    int
		wantErr       bool
	}{
		{"initial within bounds", 5, 60, 20, 20, false},
		{"initial above max", 5, 60, 100, 60, false},
		{"initial below min", 5, 60, 1, 5, false},
		{"min below one", 0, 10, 5, 0, true},
		{"max below min", 10, 5, 7, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSetting(tt.min, tt.max, tt.ini)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSetting() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Target() != tt.wantTarget {
				t.Errorf("Target() = %d, want %d", s.Target(), tt.wantTarget)
			}
		})
	}
}

func TestTuner_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		initial    int
		medianMs   float64
		wantTarget int
		wantDec    Decision
	}{
		{"no data is a no-op", 20, 0, 20, NoData},
		{"fast grows", 10, 100, 12, Grow},           // floor(10*1.15)+1 = 12
		{"fast grows clamped to max", 58, 100, 60, Grow},
		{"fast at max holds", 60, 100, 60, Hold},
		{"slow shrinks", 10, 900, 8, Shrink},        // floor(10*0.85) = 8
		{"slow shrinks clamped to min", 5, 900, 5, Hold},
		{"slow near min clamps", 6, 900, 5, Shrink}, // floor(6*0.85) = 5
		{"between thresholds holds", 20, 400, 20, Hold},
		{"exactly low threshold holds", 20, 250, 20, Hold},
		{"exactly high threshold holds", 20, 600, 20, Hold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSetting(5, 60, tt.initial)
			if err != nil {
				t.Fatalf("NewSetting() error = %v", err)
			}
			tn := New(s, newFixedLatency(tt.medianMs), nil, DefaultConfig(), testLogger())

			if got := tn.Evaluate(); got != tt.wantDec {
				t.Errorf("Evaluate() = %v, want %v", got, tt.wantDec)
			}
			if s.Target() != tt.wantTarget {
				t.Errorf("Target() = %d, want %d", s.Target(), tt.wantTarget)
			}
		})
	}
}

func TestTuner_RepeatedGrowNeverExceedsMax(t *testing.T) {
	s, _ := NewSetting(5, 60, 5)
	tn := New(s, newFixedLatency(10), nil, DefaultConfig(), testLogger())

	prev := s.Target()
	for i := 0; i < 100; i++ {
		tn.Evaluate()
		if s.Target() > s.Max() {
			t.Fatalf("iteration %d: Target() = %d exceeds max %d", i, s.Target(), s.Max())
		}
		if s.Target() < prev {
			t.Fatalf("iteration %d: Target() decreased from %d to %d on a grow signal", i, prev, s.Target())
		}
		prev = s.Target()
	}
	if s.Target() != s.Max() {
		t.Errorf("Target() = %d, want %d after repeated grow signals", s.Target(), s.Max())
	}
}

func TestTuner_RepeatedShrinkNeverBelowMin(t *testing.T) {
	s, _ := NewSetting(5, 60, 60)
	tn := New(s, newFixedLatency(5000), nil, DefaultConfig(), testLogger())

	for i := 0; i < 100; i++ {
		tn.Evaluate()
		if s.Target() < s.Min() {
			t.Fatalf("iteration %d: Target() = %d below min %d", i, s.Target(), s.Min())
		}
	}
	if s.Target() != s.Min() {
		t.Errorf("Target() = %d, want %d after repeated shrink signals", s.Target(), s.Min())
	}
}

func TestTuner_RaisesCapacityAfterEvaluation(t *testing.T) {
	s, _ := NewSetting(1, 100, 10)
	raiser := &recordingRaiser{}
	tn := New(s, newFixedLatency(50), raiser, DefaultConfig(), testLogger())

	tn.Evaluate()

	if raiser.calls != 1 {
		t.Errorf("EnsureCapacity calls = %d, want 1", raiser.calls)
	}
	if raiser.last != s.Target() {
		t.Errorf("EnsureCapacity(%d), want %d", raiser.last, s.Target())
	}
}

func TestTuner_CustomThresholds(t *testing.T) {
	s, _ := NewSetting(1, 100, 10)
	cfg := DefaultConfig()
	cfg.LowLatencyMs = 50
	cfg.HighLatencyMs = 80
	cfg.GrowFactor = 2
	tn := New(s, newFixedLatency(100), nil, cfg, testLogger())

	if got := tn.Evaluate(); got != Shrink {
		t.Errorf("Evaluate() = %v, want %v", got, Shrink)
	}
	if s.Target() != 8 {
		t.Errorf("Target() = %d, want 8", s.Target())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"zero interval", func(c *Config) { c.Interval = 0 }, true},
		{"inverted thresholds", func(c *Config) { c.LowLatencyMs = 700 }, true},
		{"grow below one", func(c *Config) { c.GrowFactor = 0.9 }, true},
		{"shrink of one", func(c *Config) { c.ShrinkFactor = 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTuner_RunStopsOnCancel(t *testing.T) {
	s, _ := NewSetting(1, 100, 10)
	cfg := DefaultConfig()
	cfg.Interval = 5 * time.Millisecond
	tn := New(s, newFixedLatency(10), nil, cfg, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tn.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if s.Target() <= 10 {
		t.Errorf("Target() = %d, want growth while running", s.Target())
	}
}
