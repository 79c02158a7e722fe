package idscout

import (
	"errors"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/jpalmerr/idscout/internal/candidate"
	"github.com/jpalmerr/idscout/internal/delivery"
	"github.com/jpalmerr/idscout/internal/ledger"
	"github.com/jpalmerr/idscout/internal/tuner"
)

// scoutConfig holds mutable state during Scout construction.
type scoutConfig struct {
	title string
	port  int

	webhookURL      string
	messageTemplate string
	lookupURL       string
	userAgent       string
	headers         map[string]string
	requestTimeout  time.Duration
	predicate       Predicate

	policy candidate.Policy
	seed   int64

	minConcurrent     int
	maxConcurrent     int
	initialConcurrent int
	monitorInterval   time.Duration
	cooperativeShrink bool

	tokensPerSec    float64
	maxTokens       int
	deniedBackoff   time.Duration
	throttlePenalty time.Duration

	autotune      tuner.Config
	latencyWindow int

	delivery   delivery.Config
	drainGrace time.Duration

	ledger ledger.Config

	logger          *slog.Logger
	hitCallbacks    []func(Hit)
	resultCallbacks []func(Result)
}

// Option is a function that configures a [Scout] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*scoutConfig) error

// WithWebhookURL sets the notification sink. Every new hit is POSTed to it
// as {"content": "<message>"}.
//
// The webhook URL is required: [New] fails without it.
func WithWebhookURL(url string) Option {
	return func(cfg *scoutConfig) error {
		if url == "" {
			return errors.New("webhook url cannot be empty")
		}
		cfg.webhookURL = url
		return nil
	}
}

// WithMessageTemplate sets the notification text, rendered with
// [text/template]. The template receives a value with ID and URL fields.
//
// Defaults to "https://www.roblox.com/groups/group.aspx?gid={{.ID}}".
//
// Returns an error if the template does not parse.
func WithMessageTemplate(text string) Option {
	return func(cfg *scoutConfig) error {
		if _, err := template.New("message").Parse(text); err != nil {
			return fmt.Errorf("invalid message template: %w", err)
		}
		cfg.messageTemplate = text
		return nil
	}
}

// WithLookupURL sets the lookup endpoint as a [text/template] receiving a
// value with an ID field.
//
// Example:
//
//	scout, err := idscout.New(
//	    idscout.WithWebhookURL(hook),
//	    idscout.WithLookupURL("https://groups.example.com/v1/groups/{{.ID}}"),
//	)
func WithLookupURL(tmpl string) Option {
	return func(cfg *scoutConfig) error {
		if tmpl == "" {
			return errors.New("lookup url cannot be empty")
		}
		if _, err := template.New("lookup").Parse(tmpl); err != nil {
			return fmt.Errorf("invalid lookup url template: %w", err)
		}
		cfg.lookupURL = tmpl
		return nil
	}
}

// WithUserAgent sets the User-Agent sent with every lookup.
// Defaults to "group-scanner/1".
func WithUserAgent(ua string) Option {
	return func(cfg *scoutConfig) error {
		cfg.userAgent = ua
		return nil
	}
}

// WithHeaders adds headers sent with every lookup. Later calls override
// earlier values for the same key.
func WithHeaders(headers map[string]string) Option {
	return func(cfg *scoutConfig) error {
		if cfg.headers == nil {
			cfg.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			cfg.headers[k] = v
		}
		return nil
	}
}

// WithRequestTimeout bounds each lookup request. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *scoutConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithPredicate sets the match predicate. Defaults to [OwnerlessJoinable].
//
// Nil predicates are rejected.
func WithPredicate(p Predicate) Option {
	return func(cfg *scoutConfig) error {
		if p == nil {
			return errors.New("predicate cannot be nil")
		}
		cfg.predicate = p
		return nil
	}
}

// WithIDRange sets the full identifier space, inclusive.
// Defaults to 9,999,999 to 999,999,999.
func WithIDRange(min, max int64) Option {
	return func(cfg *scoutConfig) error {
		cfg.policy.Full = candidate.Range{Min: min, Max: max}
		return nil
	}
}

// WithLikelyRange sets the biased sub-range and the probability of drawing
// from it. Defaults to 7,000,000 to 50,000,000 with weight 0.7.
//
// A weight of 0 samples only the full range; 1 samples only the likely one.
func WithLikelyRange(min, max int64, weight float64) Option {
	return func(cfg *scoutConfig) error {
		if !(weight >= 0 && weight <= 1) {
			return fmt.Errorf("likely weight must be within [0, 1], got %v", weight)
		}
		cfg.policy.Likely = candidate.Range{Min: min, Max: max}
		cfg.policy.LikelyWeight = weight
		return nil
	}
}

// WithSeed makes candidate generation deterministic. Zero (the default)
// seeds from the clock.
func WithSeed(seed int64) Option {
	return func(cfg *scoutConfig) error {
		cfg.seed = seed
		return nil
	}
}

// WithConcurrency sets the concurrency bounds and the starting target.
//
// The auto-tuner keeps the target within [min, max]. initial is clamped
// into that range. Defaults are 5, 60 and 20.
//
// Example:
//
//	scout, err := idscout.New(
//	    idscout.WithWebhookURL(hook),
//	    idscout.WithConcurrency(2, 10, 4),
//	)
func WithConcurrency(min, max, initial int) Option {
	return func(cfg *scoutConfig) error {
		if min < 1 {
			return errors.New("min concurrency must be at least 1")
		}
		if max < min {
			return fmt.Errorf("max concurrency (%d) must be >= min (%d)", max, min)
		}
		cfg.minConcurrent = min
		cfg.maxConcurrent = max
		cfg.initialConcurrent = initial
		return nil
	}
}

// WithMonitorInterval sets how often the worker pool spawns workers to
// reach the concurrency target. Defaults to 1 second.
func WithMonitorInterval(d time.Duration) Option {
	return func(cfg *scoutConfig) error {
		if d <= 0 {
			return errors.New("monitor interval must be positive")
		}
		cfg.monitorInterval = d
		return nil
	}
}

// WithCooperativeShrink lets surplus workers exit after their current probe
// when the auto-tuner lowers the target. By default workers are never
// retired before shutdown.
func WithCooperativeShrink(enabled bool) Option {
	return func(cfg *scoutConfig) error {
		cfg.cooperativeShrink = enabled
		return nil
	}
}

// WithRateLimit sets the outbound token bucket: tokensPerSec refill rate
// and maxTokens capacity. Defaults to 200 and 500.
//
// Returns an error if either value is not positive.
func WithRateLimit(tokensPerSec float64, maxTokens int) Option {
	return func(cfg *scoutConfig) error {
		if tokensPerSec <= 0 {
			return errors.New("tokens per second must be positive")
		}
		if maxTokens <= 0 {
			return errors.New("max tokens must be positive")
		}
		cfg.tokensPerSec = tokensPerSec
		cfg.maxTokens = maxTokens
		return nil
	}
}

// WithDeniedBackoff sets how long a worker sleeps when the rate limiter
// denies a permit. Defaults to 50ms.
func WithDeniedBackoff(d time.Duration) Option {
	return func(cfg *scoutConfig) error {
		if d < 0 {
			return errors.New("denied backoff must not be negative")
		}
		cfg.deniedBackoff = d
		return nil
	}
}

// WithThrottlePenalty sets how long a worker sleeps after the lookup
// endpoint answers 429. Defaults to 1 second.
func WithThrottlePenalty(d time.Duration) Option {
	return func(cfg *scoutConfig) error {
		if d < 0 {
			return errors.New("throttle penalty must not be negative")
		}
		cfg.throttlePenalty = d
		return nil
	}
}

// WithAutoTune sets the evaluation interval and the latency thresholds.
// A median below low grows the target; above high shrinks it.
// Defaults are 5s, 250ms and 600ms.
func WithAutoTune(interval, low, high time.Duration) Option {
	return func(cfg *scoutConfig) error {
		cfg.autotune.Interval = interval
		cfg.autotune.LowLatencyMs = float64(low.Milliseconds())
		cfg.autotune.HighLatencyMs = float64(high.Milliseconds())
		return cfg.autotune.Validate()
	}
}

// WithTuneFactors sets the growth and shrink multipliers applied by the
// auto-tuner. Defaults are 1.15 and 0.85.
func WithTuneFactors(grow, shrink float64) Option {
	return func(cfg *scoutConfig) error {
		cfg.autotune.GrowFactor = grow
		cfg.autotune.ShrinkFactor = shrink
		return cfg.autotune.Validate()
	}
}

// WithLatencyWindow sets how many recent lookup durations feed the median.
// Defaults to 200.
func WithLatencyWindow(n int) Option {
	return func(cfg *scoutConfig) error {
		if n < 1 {
			return errors.New("latency window must be at least 1")
		}
		cfg.latencyWindow = n
		return nil
	}
}

// WithDelivery sets the notification retry policy: attempts per item, the
// base of the exponential backoff, and the per-attempt timeout.
// Defaults are 5, 250ms and 5s, giving waits of 500ms, 1s, 2s and 4s.
func WithDelivery(maxAttempts int, baseBackoff, timeout time.Duration) Option {
	return func(cfg *scoutConfig) error {
		if maxAttempts < 1 {
			return errors.New("delivery attempts must be at least 1")
		}
		if baseBackoff <= 0 || timeout <= 0 {
			return errors.New("delivery backoff and timeout must be positive")
		}
		cfg.delivery = delivery.Config{
			MaxAttempts: maxAttempts,
			BaseBackoff: baseBackoff,
			Timeout:     timeout,
		}
		return nil
	}
}

// WithDrainGrace sets how long shutdown waits for pending notifications.
// Defaults to 5 seconds. Zero abandons pending items immediately.
func WithDrainGrace(d time.Duration) Option {
	return func(cfg *scoutConfig) error {
		if d < 0 {
			return errors.New("drain grace must not be negative")
		}
		cfg.drainGrace = d
		return nil
	}
}

// WithMemoryDedupe suppresses repeat notifications for the same identifier
// within ttl, for the life of the process. Zero ttl remembers forever.
func WithMemoryDedupe(ttl time.Duration) Option {
	return func(cfg *scoutConfig) error {
		cfg.ledger = ledger.Config{Backend: ledger.BackendMemory, TTL: ttl}
		return nil
	}
}

// WithRedisDedupe suppresses repeat notifications using Redis, so the
// record survives restarts and is shared between instances.
func WithRedisDedupe(addr, password string, db int, ttl time.Duration) Option {
	return func(cfg *scoutConfig) error {
		if addr == "" {
			return errors.New("redis address cannot be empty")
		}
		cfg.ledger = ledger.Config{
			Backend:       ledger.BackendRedis,
			TTL:           ttl,
			RedisAddr:     addr,
			RedisPassword: password,
			RedisDB:       db,
		}
		return nil
	}
}

// WithPostgresDedupe suppresses repeat notifications using a Postgres
// table created on start.
func WithPostgresDedupe(dsn string, ttl time.Duration) Option {
	return func(cfg *scoutConfig) error {
		if dsn == "" {
			return errors.New("postgres dsn cannot be empty")
		}
		cfg.ledger = ledger.Config{Backend: ledger.BackendPostgres, TTL: ttl, PostgresDSN: dsn}
		return nil
	}
}

// WithPort sets the HTTP port for the health and dashboard server.
// Defaults to 3000. Port 0 picks a free port.
//
// Returns an error if the port is outside 0-65535.
func WithPort(port int) Option {
	return func(cfg *scoutConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Scout instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *scoutConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithHitCallback registers a function called for every new hit, after
// duplicate suppression and before the notification is queued.
//
// Callbacks run on the worker goroutine that found the hit, so they must be
// safe for concurrent use and should not block. Panics are recovered and
// logged.
//
// Example:
//
//	scout, err := idscout.New(
//	    idscout.WithWebhookURL(hook),
//	    idscout.WithHitCallback(func(h idscout.Hit) {
//	        log.Printf("found %d", h.ID)
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithHitCallback(cb func(Hit)) Option {
	return func(cfg *scoutConfig) error {
		if cb == nil {
			return nil
		}
		cfg.hitCallbacks = append(cfg.hitCallbacks, cb)
		return nil
	}
}

// WithResultCallback registers a function called for every lookup,
// whatever its outcome. The same concurrency rules as [WithHitCallback]
// apply.
func WithResultCallback(cb func(Result)) Option {
	return func(cfg *scoutConfig) error {
		if cb == nil {
			return nil
		}
		cfg.resultCallbacks = append(cfg.resultCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "idscout".
func WithTitle(title string) Option {
	return func(cfg *scoutConfig) error {
		cfg.title = title
		return nil
	}
}
