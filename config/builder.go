package config

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/idscout"
)

// Options converts parsed configuration into SDK options.
//
// The logger is passed through to the engine. cfg must have been produced
// by [Load] or [Parse] so defaults are in place.
func Options(cfg *Config, logger *slog.Logger) ([]idscout.Option, error) {
	pred, err := BuildPredicate(cfg.Lookup.Match)
	if err != nil {
		return nil, fmt.Errorf("lookup.match: %w", err)
	}

	opts := []idscout.Option{
		idscout.WithWebhookURL(cfg.WebhookURL),
		idscout.WithPort(cfg.Port),
		idscout.WithMessageTemplate(cfg.MessageTemplate),
		idscout.WithLookupURL(cfg.Lookup.URLTemplate),
		idscout.WithUserAgent(cfg.Lookup.UserAgent),
		idscout.WithRequestTimeout(cfg.Lookup.Timeout.Duration()),
		idscout.WithPredicate(pred),
		idscout.WithIDRange(cfg.IDs.Min, cfg.IDs.Max),
		idscout.WithLikelyRange(cfg.IDs.LikelyMin, cfg.IDs.LikelyMax, *cfg.IDs.LikelyWeight),
		idscout.WithSeed(cfg.IDs.Seed),
		idscout.WithConcurrency(cfg.Concurrency.Min, cfg.Concurrency.Max, cfg.Concurrency.Initial),
		idscout.WithMonitorInterval(cfg.Concurrency.MonitorInterval.Duration()),
		idscout.WithCooperativeShrink(cfg.Concurrency.CooperativeShrink),
		idscout.WithRateLimit(cfg.RateLimit.TokensPerSec, cfg.RateLimit.MaxTokens),
		idscout.WithDeniedBackoff(cfg.RateLimit.DeniedBackoff.Duration()),
		idscout.WithThrottlePenalty(cfg.RateLimit.ThrottlePenalty.Duration()),
		idscout.WithAutoTune(cfg.AutoTune.Interval.Duration(), cfg.AutoTune.LowLatency.Duration(), cfg.AutoTune.HighLatency.Duration()),
		idscout.WithTuneFactors(cfg.AutoTune.GrowFactor, cfg.AutoTune.ShrinkFactor),
		idscout.WithLatencyWindow(cfg.AutoTune.Window),
		idscout.WithDelivery(cfg.Delivery.MaxAttempts, cfg.Delivery.BaseBackoff.Duration(), cfg.Delivery.Timeout.Duration()),
		idscout.WithDrainGrace(cfg.Delivery.DrainGrace.Duration()),
	}

	if len(cfg.Lookup.Headers) > 0 {
		opts = append(opts, idscout.WithHeaders(cfg.Lookup.Headers))
	}
	if cfg.Title != "" {
		opts = append(opts, idscout.WithTitle(cfg.Title))
	}
	if logger != nil {
		opts = append(opts, idscout.WithLogger(logger))
	}

	ttl := cfg.Dedupe.TTL.Duration()
	switch cfg.Dedupe.Backend {
	case BackendMemory:
		opts = append(opts, idscout.WithMemoryDedupe(ttl))
	case BackendRedis:
		r := cfg.Dedupe.Redis
		opts = append(opts, idscout.WithRedisDedupe(r.Addr, r.Password, r.DB, ttl))
	case BackendPostgres:
		opts = append(opts, idscout.WithPostgresDedupe(cfg.Dedupe.PostgresDSN, ttl))
	}

	return opts, nil
}

// BuildPredicate converts a [PredicateConfig] into an SDK predicate.
//
// Returns an error for unknown types; an empty type means the default,
// [idscout.OwnerlessJoinable].
func BuildPredicate(pc PredicateConfig) (idscout.Predicate, error) {
	switch pc.Type {
	case "", "ownerless":
		return idscout.OwnerlessJoinable, nil
	case "null":
		return idscout.JSONFieldNull(pc.Path), nil
	case "equals":
		return idscout.JSONFieldEquals(pc.Path, pc.Value), nil
	case "all", "any":
		children := make([]idscout.Predicate, 0, len(pc.Of))
		for i, child := range pc.Of {
			p, err := BuildPredicate(child)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", pc.Type, i, err)
			}
			children = append(children, p)
		}
		if pc.Type == "all" {
			return idscout.AllOf(children...), nil
		}
		return idscout.AnyOf(children...), nil
	default:
		return nil, fmt.Errorf("unknown predicate type %q", pc.Type)
	}
}
