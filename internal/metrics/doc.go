// Package metrics exposes engine counters and gauges to Prometheus.
package metrics
