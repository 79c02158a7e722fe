// Package idscout probes a numeric identifier space behind a public lookup
// endpoint, detects identifiers matching a predicate, and delivers each new
// match to a webhook.
//
// The engine self-tunes its concurrency to the latency the remote service
// shows, while a token bucket keeps the outbound request rate bounded.
// Identifiers are sampled at random with a bias toward a likely sub-range;
// the space is never crawled in order.
//
// # Quick Start
//
//	scout, err := idscout.New(
//	    idscout.WithWebhookURL(os.Getenv("discordwebhook")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	scout.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// Scout uses the functional options pattern:
//
//	scout, err := idscout.New(
//	    idscout.WithWebhookURL(hook),
//	    idscout.WithLookupURL("https://groups.example.com/v1/groups/{{.ID}}"),
//	    idscout.WithConcurrency(5, 60, 20),
//	    idscout.WithRateLimit(200, 500),
//	    idscout.WithRedisDedupe("localhost:6379", "", 0, 30*24*time.Hour),
//	)
//
// # Predicates
//
// A [Predicate] decides whether a successful lookup body is a hit. The
// default, [OwnerlessJoinable], matches groups whose owner is null and which
// allow public entry. Predicates compose with [AllOf] and [AnyOf]; the
// building blocks [JSONFieldNull] and [JSONFieldEquals] address fields with
// dot notation.
//
// # Architecture
//
// The engine consists of several internal packages (under internal/):
//
//   - internal/ratelimit: Non-blocking token bucket gating every lookup
//   - internal/candidate: Weighted random identifier sampling
//   - internal/poller: Lookup classification and the worker pool
//   - internal/latency, internal/tuner: Median latency and the auto-tuner
//   - internal/transport: Shared keep-alive HTTP client
//   - internal/delivery: Single-consumer retrying notification queue
//   - internal/ledger: Optional duplicate suppression (memory, Redis, Postgres)
//   - internal/store, internal/server: Recent hits, health, SSE and metrics
//
// The internal packages are not part of the public API and may change
// without notice.
package idscout
