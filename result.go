package idscout

import "time"

// Outcome classifies one lookup.
//
// Outcome is a string type so it logs and serializes readably while the
// defined constants keep it type safe.
type Outcome string

const (
	// OutcomeHit means the identifier matched the predicate.
	OutcomeHit Outcome = "hit"

	// OutcomeMiss means the identifier was looked up and did not match.
	OutcomeMiss Outcome = "miss"

	// OutcomeInconclusive covers rate-limit denials, remote throttling,
	// timeouts, transport errors, non-success statuses and undecodable
	// bodies. The identifier is simply not retried.
	OutcomeInconclusive Outcome = "inconclusive"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// Predicate decides whether a successful lookup body is a match.
//
// Predicates should be pure: the same body always yields the same answer.
// Return an error when the body cannot be interpreted; the lookup is then
// [OutcomeInconclusive] rather than a miss.
//
// # Panic Safety
//
// Predicates are called within a panic recovery boundary. A panicking
// predicate makes the lookup inconclusive and logs the stack trace with a
// correlation ID; the worker keeps running.
type Predicate func(body []byte) (bool, error)

// Result holds the outcome of probing one identifier.
type Result struct {
	// ID is the probed identifier.
	ID int64

	// Outcome is the classification.
	Outcome Outcome

	// URL is the lookup URL, empty when no request was made.
	URL string

	// StatusCode is the HTTP status, zero when no response arrived.
	StatusCode int

	// Reason explains an inconclusive outcome, such as "throttled" or
	// "rate_limited".
	Reason string

	// Latency is the wall-clock duration of the probe, including any
	// rate-limit or throttle wait.
	Latency time.Duration

	// Error is the underlying failure, if any.
	Error error
}

// Hit is a newly detected match, after duplicate suppression.
type Hit struct {
	// ID is the matching identifier.
	ID int64

	// URL is the lookup URL that produced the match.
	URL string

	// Message is the rendered notification text.
	Message string

	// FoundAt is when the match was classified.
	FoundAt time.Time
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	// Concurrency is the current concurrency target.
	Concurrency int
	// Workers is the number of live probe workers.
	Workers int
	// QueueLength is the number of notifications waiting.
	QueueLength int
	// MedianLatencyMs is the median probe latency over the sample window.
	MedianLatencyMs float64
	// Tokens is the number of rate-limit tokens available.
	Tokens float64
	// Probes is the number of probes completed.
	Probes int64
	// Hits is the number of hits recorded since start.
	Hits int64
}
