// Package server provides the HTTP liveness surface for idscout.
//
// It serves:
//
//   - "/": the embedded dashboard, or "idscout running" without assets
//   - "/health": concurrency, workers, queue length, median latency, tokens
//   - "/api/hits": recent hits as JSON
//   - "/api/sse": Server-Sent Events stream of new hits
//   - "/metrics": Prometheus exposition
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
