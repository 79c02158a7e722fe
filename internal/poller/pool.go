package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const defaultMonitorInterval = time.Second

// Generator produces candidates.
type Generator interface {
	Next() int64
}

// Prober looks up a single candidate.
type Prober interface {
	Probe(ctx context.Context, id int64) Result
}

// TargetSource reports the desired number of workers.
type TargetSource interface {
	Target() int
}

// LatencyRecorder receives the wall-clock duration of every probe.
type LatencyRecorder interface {
	Record(ms float64)
}

// PoolConfig configures a [Pool].
type PoolConfig struct {
	// MonitorInterval is how often the live worker count is compared with
	// the target. Defaults to 1 second.
	MonitorInterval time.Duration

	// CooperativeShrink lets surplus workers retire after their current
	// probe when the target drops. When false, shrinking is soft: workers
	// keep running until shutdown.
	CooperativeShrink bool
}

// Pool runs long-lived probe workers and grows them toward a target.
//
// Each worker loops: generate a candidate, probe it, record the probe's
// duration, hand the result to the handler, yield. A monitor goroutine spawns
// workers whenever the live count is below the target. Workers are never
// killed mid-probe: they observe the stop signal only between probes, and
// probes run on a context detached from it.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Pool struct {
	gen     Generator
	prober  Prober
	target  TargetSource
	latency LatencyRecorder
	handle  func(Result)
	cfg     PoolConfig
	logger  *slog.Logger

	live    atomic.Int64
	spawned atomic.Int64
	probes  atomic.Int64

	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
	// started and stopped guard against double Start and Start after Stop
	started bool
	stopped bool
}

// NewPool creates a [Pool]. handler is invoked from worker goroutines for
// every result and must be safe for concurrent use; it may be nil.
func NewPool(gen Generator, prober Prober, target TargetSource, latency LatencyRecorder, handler func(Result), cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = defaultMonitorInterval
	}
	if handler == nil {
		handler = func(Result) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		gen:     gen,
		prober:  prober,
		target:  target,
		latency: latency,
		handle:  handler,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start spawns workers up to the current target and starts the monitor.
//
// Start is non-blocking and idempotent. If Stop was called before Start,
// Start is a no-op. Cancelling ctx has the same effect as Stop without
// the wait.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.scale(ctx)
	p.wg.Add(1)
	p.mu.Unlock()

	go p.monitor(ctx)
}

// Stop signals all workers to exit after their in-flight probe and waits
// for them. Stop is idempotent and safe to call before Start.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// Wait blocks until the monitor and every worker have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Live returns the number of running workers.
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// Probes returns the number of probes completed so far.
func (p *Pool) Probes() int64 {
	return p.probes.Load()
}

func (p *Pool) monitor(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.scale(ctx); n > 0 {
				p.logger.Info("spawned workers", "count", n, "live", p.Live(), "target", p.target.Target())
			}
		}
	}
}

// scale spawns workers until the live count reaches the target. It only
// ever grows the pool; see PoolConfig.CooperativeShrink for the other
// direction. Returns the number of workers spawned.
func (p *Pool) scale(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	spawned := 0
	for int(p.live.Load()) < p.target.Target() {
		p.live.Add(1)
		p.wg.Add(1)
		go p.worker(ctx, int(p.spawned.Add(1)))
		spawned++
	}
	return spawned
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	retired := false
	defer func() {
		if !retired {
			p.live.Add(-1)
		}
	}()

	p.logger.Debug("worker started", "worker", id)
	probeCtx := context.WithoutCancel(ctx)

	for ctx.Err() == nil {
		candidate := p.gen.Next()

		start := time.Now()
		result := p.prober.Probe(probeCtx, candidate)
		result.Latency = time.Since(start)
		p.latency.Record(float64(result.Latency.Microseconds()) / 1000)
		p.probes.Add(1)

		p.safeHandle(result)

		if p.cfg.CooperativeShrink && p.retire() {
			retired = true
			p.logger.Debug("worker retired", "worker", id, "live", p.Live())
			return
		}

		// yield so a tight loop doesn't monopolize the scheduler
		runtime.Gosched()
	}
	p.logger.Debug("worker stopped", "worker", id)
}

// retire removes this worker from the live count if the pool is above
// target. The compare-and-swap keeps concurrent retirees from undershooting.
func (p *Pool) retire() bool {
	for {
		n := p.live.Load()
		if int(n) <= p.target.Target() {
			return false
		}
		if p.live.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// safeHandle invokes the result handler with panic recovery so a faulty
// handler cannot take a worker down.
func (p *Pool) safeHandle(result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("result handler panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"candidate", result.ID,
				"stack", string(debug.Stack()),
			)
		}
	}()
	p.handle(result)
}
