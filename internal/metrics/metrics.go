package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/idscout/internal/delivery"
)

const namespace = "idscout"

// Gauges supplies point-in-time readings sampled on every scrape.
// Nil functions are skipped.
type Gauges struct {
	Concurrency     func() float64
	Workers         func() float64
	QueueLength     func() float64
	MedianLatencyMs func() float64
	Tokens          func() float64
}

// Metrics holds the Prometheus collectors for one engine.
//
// Each Metrics owns its registry, so several engines in one process (or
// test) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	probes        *prometheus.CounterVec
	probeDuration prometheus.Histogram
	hits          prometheus.Counter
	duplicates    prometheus.Counter
	deliveries    *prometheus.CounterVec
	deliveryTries prometheus.Counter
}

var _ delivery.Recorder = (*Metrics)(nil)

// New creates and registers the collectors.
func New(g Gauges) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Lookups performed, by outcome.",
		}, []string{"outcome", "reason"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Wall-clock duration of each lookup, including rate-limit waits.",
			Buckets:   []float64{.05, .1, .25, .5, .75, 1, 2.5, 5, 10},
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Hits detected, including duplicates.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_hits_total",
			Help:      "Hits suppressed by the ledger.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery items finished, by result.",
		}, []string{"result"}),
		deliveryTries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failed_attempts_total",
			Help:      "Individual delivery attempts that failed.",
		}),
	}

	m.registry.MustRegister(
		m.probes,
		m.probeDuration,
		m.hits,
		m.duplicates,
		m.deliveries,
		m.deliveryTries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	gauge := func(name, help string, fn func() float64) {
		if fn == nil {
			return
		}
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, fn))
	}
	gauge("concurrency_target", "Current concurrency setting.", g.Concurrency)
	gauge("workers", "Live probe workers.", g.Workers)
	gauge("delivery_queue_length", "Items waiting for delivery.", g.QueueLength)
	gauge("median_latency_ms", "Median lookup latency over the sample window.", g.MedianLatencyMs)
	gauge("rate_limit_tokens", "Tokens currently in the bucket.", g.Tokens)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveProbe counts one lookup.
func (m *Metrics) ObserveProbe(outcome, reason string, d time.Duration) {
	m.probes.WithLabelValues(outcome, reason).Inc()
	m.probeDuration.Observe(d.Seconds())
}

// HitFound counts a detected hit.
func (m *Metrics) HitFound() {
	m.hits.Inc()
}

// DuplicateSuppressed counts a hit skipped by the ledger.
func (m *Metrics) DuplicateSuppressed() {
	m.duplicates.Inc()
}

// Delivered implements [delivery.Recorder].
func (m *Metrics) Delivered(delivery.Item, int) {
	m.deliveries.WithLabelValues("delivered").Inc()
}

// Failed implements [delivery.Recorder].
func (m *Metrics) Failed(delivery.Item, int, error) {
	m.deliveryTries.Inc()
}

// Dropped implements [delivery.Recorder].
func (m *Metrics) Dropped(delivery.Item, int, error) {
	m.deliveries.WithLabelValues("dropped").Inc()
}
