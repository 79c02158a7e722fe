package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/idscout/internal/transport"
)

// Outcome classifies a single lookup.
type Outcome int

const (
	// Inconclusive covers rate-limit denials, remote throttling, timeouts,
	// transport errors, non-success statuses and undecodable bodies.
	Inconclusive Outcome = iota
	// Miss means the identifier was looked up and does not match.
	Miss
	// Hit means the identifier matches the target predicate.
	Hit
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "inconclusive"
	}
}

// Reasons attached to inconclusive results.
const (
	ReasonRateLimited = "rate_limited"
	ReasonThrottled   = "throttled"
	ReasonTransport   = "transport"
	ReasonStatus      = "status"
	ReasonDecode      = "decode"
	ReasonURL         = "url"
)

// Result holds the outcome of probing one candidate.
type Result struct {
	// ID is the probed candidate.
	ID int64
	// Outcome is the classification.
	Outcome Outcome
	// URL is the lookup URL, empty when no request was made.
	URL string
	// StatusCode is the remote status, zero when no response arrived.
	StatusCode int
	// Reason explains an inconclusive outcome.
	Reason string
	// Error is the underlying failure, if any.
	Error error
	// Latency is the wall-clock duration of the probe, set by [Pool].
	Latency time.Duration
}

// Predicate decides whether a successful lookup body is a match.
// An error means the body could not be interpreted.
//
// This is the poller-internal version of the public predicate type,
// avoiding a dependency on the root package.
type Predicate func(body []byte) (bool, error)

// Permits hands out outbound request permits without blocking.
type Permits interface {
	TryConsume(cost int) bool
}

// Doer performs one HTTP exchange.
type Doer interface {
	Do(ctx context.Context, r transport.Request) transport.Response
}

// LookupConfig configures a [Lookup].
type LookupConfig struct {
	// URLTemplate renders the lookup URL; it receives a value with an ID field.
	URLTemplate *template.Template
	// Headers are sent with every lookup.
	Headers map[string]string
	// Timeout bounds each request.
	Timeout time.Duration
	// DeniedBackoff is slept when no rate-limit permit is available.
	DeniedBackoff time.Duration
	// ThrottlePenalty is slept after the remote side answers 429.
	ThrottlePenalty time.Duration
	// Predicate selects hits among successful lookups.
	Predicate Predicate
}

// Lookup probes one candidate at a time against the remote endpoint.
//
// Probe never returns an error: every failure becomes an [Inconclusive]
// result so the calling worker keeps running.
type Lookup struct {
	cfg     LookupConfig
	permits Permits
	client  Doer
	logger  *slog.Logger
	sleep   func(time.Duration)
}

// NewLookup creates a [Lookup].
func NewLookup(cfg LookupConfig, permits Permits, client Doer, logger *slog.Logger) (*Lookup, error) {
	if cfg.URLTemplate == nil {
		return nil, errors.New("lookup url template is required")
	}
	if cfg.Predicate == nil {
		return nil, errors.New("lookup predicate is required")
	}
	if permits == nil || client == nil {
		return nil, errors.New("lookup needs a rate limiter and a client")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{
		cfg:     cfg,
		permits: permits,
		client:  client,
		logger:  logger,
		sleep:   time.Sleep,
	}, nil
}

// URLFor renders the lookup URL for id.
func (l *Lookup) URLFor(id int64) (string, error) {
	var buf bytes.Buffer
	if err := l.cfg.URLTemplate.Execute(&buf, struct{ ID int64 }{ID: id}); err != nil {
		return "", fmt.Errorf("rendering lookup url: %w", err)
	}
	return buf.String(), nil
}

// Probe looks up id and classifies the response.
func (l *Lookup) Probe(ctx context.Context, id int64) Result {
	if !l.permits.TryConsume(1) {
		l.sleep(l.cfg.DeniedBackoff)
		return Result{ID: id, Outcome: Inconclusive, Reason: ReasonRateLimited}
	}

	url, err := l.URLFor(id)
	if err != nil {
		return Result{ID: id, Outcome: Inconclusive, Reason: ReasonURL, Error: err}
	}

	resp := l.client.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     url,
		Headers: l.cfg.Headers,
		Timeout: l.cfg.Timeout,
	})

	result := Result{ID: id, URL: url, StatusCode: resp.StatusCode}
	switch {
	case resp.Error != nil:
		result.Reason = ReasonTransport
		result.Error = resp.Error
	case resp.StatusCode == http.StatusTooManyRequests:
		l.sleep(l.cfg.ThrottlePenalty)
		result.Reason = ReasonThrottled
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		result.Reason = ReasonStatus
	default:
		match, err := l.safeMatch(resp.Body)
		switch {
		case err != nil:
			result.Reason = ReasonDecode
			result.Error = err
		case match:
			result.Outcome = Hit
		default:
			result.Outcome = Miss
		}
	}
	return result
}

// safeMatch calls the predicate with panic recovery.
// If the predicate panics, it logs the full stack trace with a correlation ID
// and returns an error containing the ID.
func (l *Lookup) safeMatch(body []byte) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			l.logger.Error("predicate panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			match = false
			err = fmt.Errorf("predicate panic (correlation_id: %s)", correlationID)
		}
	}()
	return l.cfg.Predicate(body)
}
