package idscout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/idscout/dashboard"
	"github.com/jpalmerr/idscout/internal/candidate"
	"github.com/jpalmerr/idscout/internal/delivery"
	"github.com/jpalmerr/idscout/internal/latency"
	"github.com/jpalmerr/idscout/internal/ledger"
	"github.com/jpalmerr/idscout/internal/metrics"
	"github.com/jpalmerr/idscout/internal/poller"
	"github.com/jpalmerr/idscout/internal/ratelimit"
	"github.com/jpalmerr/idscout/internal/server"
	"github.com/jpalmerr/idscout/internal/store"
	"github.com/jpalmerr/idscout/internal/transport"
	"github.com/jpalmerr/idscout/internal/tuner"
)

const (
	defaultPort              = 3000
	defaultMessageTemplate   = "https://www.roblox.com/groups/group.aspx?gid={{.ID}}"
	defaultLookupURL         = "https://groups.roblox.com/v1/groups/{{.ID}}"
	defaultUserAgent         = "group-scanner/1"
	defaultRequestTimeout    = 5 * time.Second
	defaultMinConcurrent     = 5
	defaultMaxConcurrent     = 60
	defaultInitialConcurrent = 20
	defaultMonitorInterval   = time.Second
	defaultTokensPerSec      = 200
	defaultMaxTokens         = 500
	defaultDeniedBackoff     = 50 * time.Millisecond
	defaultThrottlePenalty   = time.Second
	defaultDrainGrace        = 5 * time.Second

	// webhookConns bounds connections to the sink; the queue sends serially.
	webhookConns = 1
)

// ErrAlreadyStarted is returned by [Scout.Start] when called more than once.
var ErrAlreadyStarted = errors.New("scout already started")

// Scout is the main orchestrator of the adaptive polling engine.
//
// Scout wires the worker pool, the rate limiter, the auto-tuner and the
// delivery queue together, and serves a health surface over HTTP. It is
// created using [New] with functional options and started with
// [Scout.Start].
//
// The typical lifecycle is:
//
//	scout, err := idscout.New(idscout.WithWebhookURL(hook))
//	if err != nil {
//	    slog.Error("failed to create scout", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	scout.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown: workers finish their current probe, pending
// notifications drain for the grace period, then the server stops.
type Scout struct {
	cfg    *scoutConfig
	logger *slog.Logger

	limiter *ratelimit.Limiter
	tracker *latency.Tracker
	setting *tuner.Setting
	tuner   *tuner.Tuner
	client  *transport.Client
	pool    *poller.Pool
	queue   *delivery.Queue
	hits    *store.MemoryStore
	metrics *metrics.Metrics
	server  *server.Server
	message *template.Template

	// ledger is set by Start before workers run and read-only afterwards.
	ledger ledger.Ledger

	started  atomic.Bool
	hitCount atomic.Int64
}

// New creates a new [Scout] instance with the given options.
//
// A webhook URL must be configured via [WithWebhookURL]. Other options have
// defaults matching a public group lookup service:
//   - Concurrency: min 5, max 60, initial 20
//   - Rate limit: 200 tokens/s, capacity 500
//   - Request timeout: 5 seconds
//   - Port: 3000
//
// Returns an error if the webhook URL is missing or any option is invalid.
func New(opts ...Option) (*Scout, error) {
	cfg := &scoutConfig{
		port:              defaultPort,
		messageTemplate:   defaultMessageTemplate,
		lookupURL:         defaultLookupURL,
		userAgent:         defaultUserAgent,
		requestTimeout:    defaultRequestTimeout,
		predicate:         OwnerlessJoinable,
		policy:            candidate.DefaultPolicy(),
		minConcurrent:     defaultMinConcurrent,
		maxConcurrent:     defaultMaxConcurrent,
		initialConcurrent: defaultInitialConcurrent,
		monitorInterval:   defaultMonitorInterval,
		tokensPerSec:      defaultTokensPerSec,
		maxTokens:         defaultMaxTokens,
		deniedBackoff:     defaultDeniedBackoff,
		throttlePenalty:   defaultThrottlePenalty,
		autotune:          tuner.DefaultConfig(),
		latencyWindow:     latency.DefaultWindow,
		delivery:          delivery.DefaultConfig(),
		drainGrace:        defaultDrainGrace,
		ledger:            ledger.Config{Backend: ledger.BackendNone},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.webhookURL == "" {
		return nil, errors.New("webhook url is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scout{cfg: cfg, logger: logger, ledger: ledger.Nop{}}

	var err error
	if s.message, err = template.New("message").Parse(cfg.messageTemplate); err != nil {
		return nil, fmt.Errorf("invalid message template: %w", err)
	}
	lookupTmpl, err := template.New("lookup").Option("missingkey=error").Parse(cfg.lookupURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lookup url template: %w", err)
	}

	if s.limiter, err = ratelimit.New(cfg.maxTokens, cfg.tokensPerSec, nil); err != nil {
		return nil, fmt.Errorf("creating rate limiter: %w", err)
	}
	if s.setting, err = tuner.NewSetting(cfg.minConcurrent, cfg.maxConcurrent, cfg.initialConcurrent); err != nil {
		return nil, fmt.Errorf("creating concurrency setting: %w", err)
	}
	if err := cfg.autotune.Validate(); err != nil {
		return nil, err
	}
	gen, err := candidate.NewGenerator(cfg.policy, cfg.seed)
	if err != nil {
		return nil, fmt.Errorf("creating candidate generator: %w", err)
	}

	s.tracker = latency.NewTracker(cfg.latencyWindow)
	s.client = transport.NewClient(s.setting.Target())
	s.tuner = tuner.New(s.setting, s.tracker, s.client, cfg.autotune, logger)

	headers := map[string]string{"Accept": "application/json"}
	if cfg.userAgent != "" {
		headers["User-Agent"] = cfg.userAgent
	}
	for k, v := range cfg.headers {
		headers[k] = v
	}

	lookup, err := poller.NewLookup(poller.LookupConfig{
		URLTemplate:     lookupTmpl,
		Headers:         headers,
		Timeout:         cfg.requestTimeout,
		DeniedBackoff:   cfg.deniedBackoff,
		ThrottlePenalty: cfg.throttlePenalty,
		Predicate:       poller.Predicate(cfg.predicate),
	}, s.limiter, s.client, logger)
	if err != nil {
		return nil, fmt.Errorf("creating lookup: %w", err)
	}

	s.pool = poller.NewPool(gen, lookup, s.setting, s.tracker, s.handleResult, poller.PoolConfig{
		MonitorInterval:   cfg.monitorInterval,
		CooperativeShrink: cfg.cooperativeShrink,
	}, logger)

	s.metrics = metrics.New(metrics.Gauges{
		Concurrency:     func() float64 { return float64(s.setting.Target()) },
		Workers:         func() float64 { return float64(s.pool.Live()) },
		QueueLength:     func() float64 { return float64(s.queue.Len()) },
		MedianLatencyMs: s.tracker.MedianMs,
		Tokens:          s.limiter.Tokens,
	})

	sink := delivery.NewWebhookSink(cfg.webhookURL, transport.NewClient(webhookConns))
	s.queue = delivery.NewQueue(sink, cfg.delivery, s.metrics, logger)

	s.hits = store.NewMemoryStore(store.DefaultLimit)
	s.server = server.NewServer(s.hits, server.Config{
		Port:    cfg.port,
		Assets:  dashboard.Assets,
		Title:   cfg.title,
		Health:  s.health,
		Metrics: s.metrics.Handler(),
	}, logger)

	return s, nil
}

// Start begins probing and serving the health surface.
//
// Start is a blocking call that runs until the provided context is
// cancelled. During execution:
//
//   - Workers are spawned up to the concurrency target and kept there
//   - The auto-tuner adjusts the target to the observed median latency
//   - Each new hit is queued for delivery to the webhook
//   - The health server listens on the configured port
//
// On cancellation Start stops the workers, waits for in-flight probes,
// drains the delivery queue for the grace period, then stops the server and
// releases connections.
//
// Returns nil on graceful shutdown. Returns an error if the dedupe ledger
// cannot be opened or the HTTP server fails to start.
func (s *Scout) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer s.client.Close()

	if ctx.Err() != nil {
		return nil
	}

	l, err := ledger.Open(ctx, s.cfg.ledger)
	if err != nil {
		return fmt.Errorf("failed to open dedupe ledger: %w", err)
	}
	s.ledger = l
	defer func() {
		if err := s.ledger.Close(); err != nil {
			s.logger.Warn("closing dedupe ledger", "error", err)
		}
	}()

	// the server and the queue outlive ctx so they can drain after the
	// workers stop
	background := context.WithoutCancel(ctx)
	serverCtx, stopServer := context.WithCancel(background)
	defer stopServer()

	if err := s.server.Start(serverCtx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("idscout starting",
		"concurrency", s.setting.Target(),
		"min_concurrent", s.setting.Min(),
		"max_concurrent", s.setting.Max(),
		"tokens_per_sec", s.limiter.RefillRate(),
		"max_tokens", s.limiter.Capacity(),
		"dedupe", s.cfg.ledger.Backend,
	)

	s.queue.Start(background)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.tuner.Run(ctx)
	}()

	s.pool.Start(ctx)

	<-ctx.Done()
	s.logger.Info("idscout stopping")

	s.pool.Stop()
	wg.Wait()

	graceCtx, cancel := context.WithTimeout(background, s.cfg.drainGrace)
	abandoned := s.queue.Shutdown(graceCtx)
	cancel()

	stopServer()
	<-s.server.Stopped()

	s.logger.Info("idscout stopped", "probes", s.pool.Probes(), "hits", s.hitCount.Load(), "abandoned", abandoned)
	return nil
}

// Stats returns a point-in-time view of the engine.
func (s *Scout) Stats() Stats {
	return Stats{
		Concurrency:     s.setting.Target(),
		Workers:         s.pool.Live(),
		QueueLength:     s.queue.Len(),
		MedianLatencyMs: s.tracker.MedianMs(),
		Tokens:          s.limiter.Tokens(),
		Probes:          s.pool.Probes(),
		Hits:            s.hitCount.Load(),
	}
}

// Recent returns up to the last 100 hits, newest first.
func (s *Scout) Recent() []Hit {
	recent := s.hits.Recent()
	out := make([]Hit, len(recent))
	for i, h := range recent {
		out[i] = Hit(h)
	}
	return out
}

func (s *Scout) health() server.Health {
	st := s.Stats()
	return server.Health{
		OK:              true,
		Concurrency:     st.Concurrency,
		Workers:         st.Workers,
		QueueLength:     st.QueueLength,
		MedianLatencyMs: st.MedianLatencyMs,
		Tokens:          st.Tokens,
	}
}

// handleResult runs on worker goroutines for every probe.
func (s *Scout) handleResult(pr poller.Result) {
	result := pollerResultToPublicResult(pr)
	s.metrics.ObserveProbe(string(result.Outcome), result.Reason, result.Latency)

	for _, cb := range s.cfg.resultCallbacks {
		invokeCallbackSafe(cb, result, s.logger)
	}

	switch result.Outcome {
	case OutcomeHit:
		s.handleHit(result)
	case OutcomeInconclusive:
		if result.Error != nil {
			s.logger.Debug("lookup inconclusive", "id", result.ID, "reason", result.Reason, "error", result.Error)
		}
	}
}

func (s *Scout) handleHit(result Result) {
	s.metrics.HitFound()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.requestTimeout)
	first, err := s.ledger.MarkSeen(ctx, result.ID)
	cancel()
	if err != nil {
		// fail open
		s.logger.Warn("dedupe ledger unavailable", "id", result.ID, "error", err)
		first = true
	}
	if !first {
		s.metrics.DuplicateSuppressed()
		s.logger.Debug("duplicate hit suppressed", "id", result.ID)
		return
	}

	msg, err := s.renderMessage(result)
	if err != nil {
		s.logger.Error("rendering hit message", "id", result.ID, "error", err)
		return
	}

	hit := Hit{
		ID:      result.ID,
		URL:     result.URL,
		Message: msg,
		FoundAt: time.Now(),
	}
	s.hitCount.Add(1)
	s.hits.Add(store.Hit(hit))
	s.logger.Info("hit found", "id", hit.ID, "url", hit.URL)

	for _, cb := range s.cfg.hitCallbacks {
		invokeCallbackSafe(cb, hit, s.logger)
	}

	s.queue.Enqueue(delivery.NewItem(hit.ID, hit.Message))
}

func (s *Scout) renderMessage(result Result) (string, error) {
	var buf bytes.Buffer
	data := struct {
		ID  int64
		URL string
	}{result.ID, result.URL}
	if err := s.message.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// pollerResultToPublicResult converts an internal lookup result to the
// public API type.
func pollerResultToPublicResult(pr poller.Result) Result {
	var outcome Outcome
	switch pr.Outcome {
	case poller.Hit:
		outcome = OutcomeHit
	case poller.Miss:
		outcome = OutcomeMiss
	default:
		outcome = OutcomeInconclusive
	}
	return Result{
		ID:         pr.ID,
		Outcome:    outcome,
		URL:        pr.URL,
		StatusCode: pr.StatusCode,
		Reason:     pr.Reason,
		Latency:    pr.Latency,
		Error:      pr.Error,
	}
}

// invokeCallbackSafe calls a callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func invokeCallbackSafe[T any](cb func(T), v T, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(v)
}
