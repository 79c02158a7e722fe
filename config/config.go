// Package config provides YAML and environment configuration for idscout.
//
// This package enables running idscout as a standalone binary with an
// optional configuration file, as an alternative to the programmatic SDK
// approach. Environment variables override file values, so a deployment
// can run from the environment alone:
//
//	discordwebhook=https://discord.com/api/webhooks/... idscout serve
//
// Example configuration:
//
//	port: 3000
//	webhook_url: ${discordwebhook}
//
//	lookup:
//	  url_template: "https://groups.roblox.com/v1/groups/{{.ID}}"
//	  timeout: 5s
//	  match: ownerless
//
//	concurrency:
//	  min: 5
//	  max: 60
//
//	dedupe:
//	  backend: redis
//	  redis:
//	    addr: ${REDIS_ADDR:-localhost:6379}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied to unset fields.
const (
	DefaultPort              = 3000
	DefaultMessageTemplate   = "https://www.roblox.com/groups/group.aspx?gid={{.ID}}"
	DefaultURLTemplate       = "https://groups.roblox.com/v1/groups/{{.ID}}"
	DefaultUserAgent         = "group-scanner/1"
	DefaultRequestTimeout    = 5 * time.Second
	DefaultMinConcurrent     = 5
	DefaultMaxConcurrent     = 60
	DefaultInitialConcurrent = 20
	DefaultTokensPerSec      = 200
	DefaultMaxTokens         = 500
	DefaultDedupeTTL         = 30 * 24 * time.Hour
)

// Backend names accepted by dedupe.backend.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Environment variables read by [Load] and [Parse]. They override values
// from the file.
const (
	EnvWebhookURL       = "discordwebhook"
	EnvPort             = "PORT"
	EnvMinConcurrent    = "MIN_CONCURRENT"
	EnvMaxConcurrent    = "MAX_CONCURRENT"
	EnvRequestTimeoutMs = "REQUEST_TIMEOUT_MS"
	EnvTokensPerSec     = "TOKENS_PER_SEC"
	EnvMaxTokens        = "MAX_TOKENS"
)

// Config is the root configuration structure for idscout.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config.
type Config struct {
	// Title is the dashboard title. Defaults to "idscout" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP port for the health server. Defaults to 3000.
	Port int `yaml:"port"`

	// WebhookURL receives a POST for every new hit. Required.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	WebhookURL string `yaml:"webhook_url"`

	// MessageTemplate renders the notification text. {{.ID}} and {{.URL}}
	// are available.
	MessageTemplate string `yaml:"message_template"`

	Lookup      LookupConfig      `yaml:"lookup"`
	IDs         IDConfig          `yaml:"ids"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	AutoTune    AutoTuneConfig    `yaml:"autotune"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	Dedupe      DedupeConfig      `yaml:"dedupe"`
	Log         LogConfig         `yaml:"log"`
}

// LookupConfig describes the remote lookup endpoint.
type LookupConfig struct {
	// URLTemplate is a Go template for the lookup URL; {{.ID}} is the
	// candidate. Supports environment variable substitution.
	URLTemplate string `yaml:"url_template"`

	// UserAgent is sent with every lookup. Defaults to "group-scanner/1".
	UserAgent string `yaml:"user_agent"`

	// Timeout bounds each lookup. Defaults to 5s.
	Timeout Duration `yaml:"timeout"`

	// Headers are sent with every lookup. Values support environment
	// variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Match selects hits. Defaults to "ownerless".
	Match PredicateConfig `yaml:"match"`
}

// IDConfig describes the identifier space and the sampling bias.
type IDConfig struct {
	Min       int64 `yaml:"min"`
	Max       int64 `yaml:"max"`
	LikelyMin int64 `yaml:"likely_min"`
	LikelyMax int64 `yaml:"likely_max"`

	// LikelyWeight is the probability of sampling the likely range.
	// A pointer so an explicit 0 is distinguishable from unset.
	LikelyWeight *float64 `yaml:"likely_weight"`

	// Seed makes sampling deterministic. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// ConcurrencyConfig bounds the worker pool.
type ConcurrencyConfig struct {
	Min             int      `yaml:"min"`
	Max             int      `yaml:"max"`
	Initial         int      `yaml:"initial"`
	MonitorInterval Duration `yaml:"monitor_interval"`

	// CooperativeShrink lets surplus workers exit when the target drops.
	CooperativeShrink bool `yaml:"cooperative_shrink"`
}

// RateLimitConfig configures the outbound token bucket.
type RateLimitConfig struct {
	TokensPerSec    float64  `yaml:"tokens_per_sec"`
	MaxTokens       int      `yaml:"max_tokens"`
	DeniedBackoff   Duration `yaml:"denied_backoff"`
	ThrottlePenalty Duration `yaml:"throttle_penalty"`
}

// AutoTuneConfig configures the latency-driven concurrency tuner.
type AutoTuneConfig struct {
	Interval     Duration `yaml:"interval"`
	Window       int      `yaml:"window"`
	LowLatency   Duration `yaml:"low_latency"`
	HighLatency  Duration `yaml:"high_latency"`
	GrowFactor   float64  `yaml:"grow_factor"`
	ShrinkFactor float64  `yaml:"shrink_factor"`
}

// DeliveryConfig configures notification retries.
type DeliveryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseBackoff Duration `yaml:"base_backoff"`
	Timeout     Duration `yaml:"timeout"`
	DrainGrace  Duration `yaml:"drain_grace"`
}

// DedupeConfig selects the hit ledger.
type DedupeConfig struct {
	// Backend is none, memory, redis or postgres. Defaults to none.
	Backend string `yaml:"backend"`

	// TTL is how long a hit is remembered. Defaults to 30 days.
	TTL Duration `yaml:"ttl"`

	Redis RedisConfig `yaml:"redis"`

	// PostgresDSN supports environment variable substitution.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// RedisConfig addresses the Redis ledger. Addr and Password support
// environment variable substitution.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`
	// Format is json or text. Defaults to json.
	Format string `yaml:"format"`
}

// PredicateConfig specifies how a lookup body is matched.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	match: ownerless
//	match: null:owner
//	match: equals:publicEntryAllowed=true
//
// Structured object:
//
//	match:
//	  all:
//	    - null:data.owner
//	    - type: equals
//	      path: data.memberCount
//	      value: 0
type PredicateConfig struct {
	// Type is "ownerless", "null", "equals", "all" or "any".
	Type string

	// Path is the dot-notation JSON path (for null and equals).
	Path string

	// Value is the expected value (for equals).
	Value any

	// Of holds the children of all and any.
	Of []PredicateConfig
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for PredicateConfig.
func (p *PredicateConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return p.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type  string            `yaml:"type"`
			Path  string            `yaml:"path"`
			Value any               `yaml:"value"`
			All   []PredicateConfig `yaml:"all"`
			Any   []PredicateConfig `yaml:"any"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		switch {
		case len(raw.All) > 0 && len(raw.Any) > 0:
			return errors.New("match cannot combine all and any at the same level")
		case len(raw.All) > 0:
			p.Type, p.Of = "all", raw.All
		case len(raw.Any) > 0:
			p.Type, p.Of = "any", raw.Any
		default:
			p.Type, p.Path, p.Value = raw.Type, raw.Path, raw.Value
		}
		return nil
	}

	return fmt.Errorf("match must be a string or object, got %v", node.Kind)
}

// parseShorthand parses predicate shorthand syntax.
//
// Supported formats:
//   - "ownerless" → owner is null and publicEntryAllowed is true
//   - "null:path" → field at path is present and null
//   - "equals:path=value" → field at path equals value, parsed as YAML
func (p *PredicateConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		p.Type = s[:idx]
		rest := s[idx+1:]

		switch p.Type {
		case "null":
			p.Path = rest
		case "equals":
			path, raw, ok := strings.Cut(rest, "=")
			if !ok {
				return fmt.Errorf("equals predicate %q must have the form equals:path=value", s)
			}
			var value any
			if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
				return fmt.Errorf("equals predicate %q: invalid value: %w", s, err)
			}
			p.Path, p.Value = path, value
		default:
			return fmt.Errorf("unknown predicate type %q", p.Type)
		}
		return nil
	}

	if s != "ownerless" {
		return fmt.Errorf("unknown predicate %q (expected 'ownerless', 'null:path', or 'equals:path=value')", s)
	}
	p.Type = s
	return nil
}

// LookupFunc reports the value of an environment variable, like
// [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string, env LookupFunc) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""

		value, exists := env(varName)
		if !exists {
			if hasDefault {
				return submatches[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads the YAML configuration file at path, then applies environment
// overrides, defaults and validation. An empty path configures from the
// environment alone.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse parses YAML configuration data using the process environment.
func Parse(data []byte) (*Config, error) {
	return ParseWithEnv(data, os.LookupEnv)
}

// ParseWithEnv parses YAML configuration data, resolving ${VAR} references
// and overrides through env.
//
// The order is: decode the YAML, expand ${VAR} in URL, header and
// credential fields, apply environment overrides, fill defaults, validate.
func ParseWithEnv(data []byte, env LookupFunc) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expand(env); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expand(env LookupFunc) error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"webhook_url", &c.WebhookURL},
		{"lookup.url_template", &c.Lookup.URLTemplate},
		{"dedupe.redis.addr", &c.Dedupe.Redis.Addr},
		{"dedupe.redis.password", &c.Dedupe.Redis.Password},
		{"dedupe.postgres_dsn", &c.Dedupe.PostgresDSN},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr, env)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = expanded
	}

	for k, v := range c.Lookup.Headers {
		expanded, err := expandEnvVars(v, env)
		if err != nil {
			return fmt.Errorf("lookup.headers[%s]: %w", k, err)
		}
		c.Lookup.Headers[k] = expanded
	}
	return nil
}

// applyEnv overrides file values with the deployment environment variables.
func (c *Config) applyEnv(env LookupFunc) error {
	if v, ok := env(EnvWebhookURL); ok && v != "" {
		c.WebhookURL = v
	}

	ints := []struct {
		key string
		ptr *int
	}{
		{EnvPort, &c.Port},
		{EnvMinConcurrent, &c.Concurrency.Min},
		{EnvMaxConcurrent, &c.Concurrency.Max},
		{EnvMaxTokens, &c.RateLimit.MaxTokens},
	}
	for _, f := range ints {
		v, ok := env(f.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("environment variable %s: %q is not an integer", f.key, v)
		}
		*f.ptr = n
	}

	if v, ok := env(EnvRequestTimeoutMs); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("environment variable %s: %q is not an integer", EnvRequestTimeoutMs, v)
		}
		c.Lookup.Timeout = Duration(time.Duration(ms) * time.Millisecond)
	}

	if v, ok := env(EnvTokensPerSec); ok && v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("environment variable %s: %q is not a number", EnvTokensPerSec, v)
		}
		c.RateLimit.TokensPerSec = rate
	}
	return nil
}

func (c *Config) applyDefaults() {
	setInt := func(p *int, v int) {
		if *p == 0 {
			*p = v
		}
	}
	setDuration := func(p *Duration, v time.Duration) {
		if *p == 0 {
			*p = Duration(v)
		}
	}
	setFloat := func(p *float64, v float64) {
		if *p == 0 {
			*p = v
		}
	}

	setInt(&c.Port, DefaultPort)
	if c.MessageTemplate == "" {
		c.MessageTemplate = DefaultMessageTemplate
	}

	if c.Lookup.URLTemplate == "" {
		c.Lookup.URLTemplate = DefaultURLTemplate
	}
	if c.Lookup.UserAgent == "" {
		c.Lookup.UserAgent = DefaultUserAgent
	}
	setDuration(&c.Lookup.Timeout, DefaultRequestTimeout)
	if c.Lookup.Match.Type == "" {
		c.Lookup.Match.Type = "ownerless"
	}

	if c.IDs.Min == 0 && c.IDs.Max == 0 {
		c.IDs.Min, c.IDs.Max = 9_999_999, 999_999_999
	}
	if c.IDs.LikelyMin == 0 && c.IDs.LikelyMax == 0 {
		c.IDs.LikelyMin, c.IDs.LikelyMax = 7_000_000, 50_000_000
	}
	if c.IDs.LikelyWeight == nil {
		w := 0.7
		c.IDs.LikelyWeight = &w
	}

	setInt(&c.Concurrency.Min, DefaultMinConcurrent)
	setInt(&c.Concurrency.Max, DefaultMaxConcurrent)
	setInt(&c.Concurrency.Initial, DefaultInitialConcurrent)
	setDuration(&c.Concurrency.MonitorInterval, time.Second)

	setFloat(&c.RateLimit.TokensPerSec, DefaultTokensPerSec)
	setInt(&c.RateLimit.MaxTokens, DefaultMaxTokens)
	setDuration(&c.RateLimit.DeniedBackoff, 50*time.Millisecond)
	setDuration(&c.RateLimit.ThrottlePenalty, time.Second)

	setDuration(&c.AutoTune.Interval, 5*time.Second)
	setInt(&c.AutoTune.Window, 200)
	setDuration(&c.AutoTune.LowLatency, 250*time.Millisecond)
	setDuration(&c.AutoTune.HighLatency, 600*time.Millisecond)
	setFloat(&c.AutoTune.GrowFactor, 1.15)
	setFloat(&c.AutoTune.ShrinkFactor, 0.85)

	setInt(&c.Delivery.MaxAttempts, 5)
	setDuration(&c.Delivery.BaseBackoff, 250*time.Millisecond)
	setDuration(&c.Delivery.Timeout, 5*time.Second)
	setDuration(&c.Delivery.DrainGrace, 5*time.Second)

	if c.Dedupe.Backend == "" {
		c.Dedupe.Backend = BackendNone
	}
	setDuration(&c.Dedupe.TTL, DefaultDedupeTTL)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate reports the first invalid field. It expects defaults to have
// been applied.
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook_url is required (or set the %s environment variable)", EnvWebhookURL)
	}
	if err := validateHTTPURL(c.WebhookURL); err != nil {
		return fmt.Errorf("webhook_url: %w", err)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}
	if _, err := template.New("").Parse(c.MessageTemplate); err != nil {
		return fmt.Errorf("invalid message_template: %w", err)
	}

	// fail fast before the engine tries to use an invalid template
	tmpl, err := template.New("").Parse(c.Lookup.URLTemplate)
	if err != nil {
		return fmt.Errorf("invalid lookup.url_template: %w", err)
	}
	var sample strings.Builder
	if err := tmpl.Execute(&sample, struct{ ID int64 }{ID: 1}); err != nil {
		return fmt.Errorf("invalid lookup.url_template: %w", err)
	}
	if err := validateHTTPURL(sample.String()); err != nil {
		return fmt.Errorf("lookup.url_template: %w", err)
	}
	if c.Lookup.Timeout.Duration() <= 0 {
		return fmt.Errorf("lookup.timeout must be positive, got %s", c.Lookup.Timeout.Duration())
	}
	if err := validatePredicate(c.Lookup.Match, "lookup.match"); err != nil {
		return err
	}

	if c.IDs.Min < 0 || c.IDs.Max < c.IDs.Min {
		return fmt.Errorf("ids: invalid range [%d, %d]", c.IDs.Min, c.IDs.Max)
	}
	if c.IDs.LikelyMin < 0 || c.IDs.LikelyMax < c.IDs.LikelyMin {
		return fmt.Errorf("ids: invalid likely range [%d, %d]", c.IDs.LikelyMin, c.IDs.LikelyMax)
	}
	if w := *c.IDs.LikelyWeight; !(w >= 0 && w <= 1) {
		return fmt.Errorf("ids.likely_weight must be within [0, 1], got %v", w)
	}

	if c.Concurrency.Min < 1 {
		return fmt.Errorf("concurrency.min must be at least 1, got %d", c.Concurrency.Min)
	}
	if c.Concurrency.Max < c.Concurrency.Min {
		return fmt.Errorf("concurrency.max (%d) must be >= concurrency.min (%d)", c.Concurrency.Max, c.Concurrency.Min)
	}
	if c.Concurrency.MonitorInterval.Duration() <= 0 {
		return errors.New("concurrency.monitor_interval must be positive")
	}

	if c.RateLimit.TokensPerSec <= 0 {
		return fmt.Errorf("rate_limit.tokens_per_sec must be positive, got %v", c.RateLimit.TokensPerSec)
	}
	if c.RateLimit.MaxTokens <= 0 {
		return fmt.Errorf("rate_limit.max_tokens must be positive, got %d", c.RateLimit.MaxTokens)
	}
	if c.RateLimit.DeniedBackoff < 0 || c.RateLimit.ThrottlePenalty < 0 {
		return errors.New("rate_limit backoffs cannot be negative")
	}

	if c.AutoTune.Interval.Duration() <= 0 {
		return errors.New("autotune.interval must be positive")
	}
	if c.AutoTune.Window < 1 {
		return fmt.Errorf("autotune.window must be at least 1, got %d", c.AutoTune.Window)
	}
	if c.AutoTune.LowLatency > c.AutoTune.HighLatency {
		return fmt.Errorf("autotune.low_latency (%s) must not exceed autotune.high_latency (%s)",
			c.AutoTune.LowLatency.Duration(), c.AutoTune.HighLatency.Duration())
	}
	if c.AutoTune.GrowFactor < 1 {
		return fmt.Errorf("autotune.grow_factor must be >= 1, got %v", c.AutoTune.GrowFactor)
	}
	if c.AutoTune.ShrinkFactor <= 0 || c.AutoTune.ShrinkFactor >= 1 {
		return fmt.Errorf("autotune.shrink_factor must be in (0, 1), got %v", c.AutoTune.ShrinkFactor)
	}

	if c.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("delivery.max_attempts must be at least 1, got %d", c.Delivery.MaxAttempts)
	}
	if c.Delivery.BaseBackoff <= 0 || c.Delivery.Timeout <= 0 {
		return errors.New("delivery.base_backoff and delivery.timeout must be positive")
	}
	if c.Delivery.DrainGrace < 0 {
		return errors.New("delivery.drain_grace cannot be negative")
	}

	switch c.Dedupe.Backend {
	case BackendNone, BackendMemory:
	case BackendRedis:
		if c.Dedupe.Redis.Addr == "" {
			return errors.New("dedupe.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Dedupe.PostgresDSN == "" {
			return errors.New("dedupe.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("dedupe.backend must be none, memory, redis or postgres, got %q", c.Dedupe.Backend)
	}
	if c.Dedupe.TTL < 0 {
		return errors.New("dedupe.ttl cannot be negative")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}

// validatePredicate validates a predicate configuration recursively.
func validatePredicate(p PredicateConfig, context string) error {
	switch p.Type {
	case "ownerless":
	case "null":
		if p.Path == "" {
			return fmt.Errorf("%s: predicate type 'null' requires a path", context)
		}
	case "equals":
		if p.Path == "" {
			return fmt.Errorf("%s: predicate type 'equals' requires a path", context)
		}
	case "all", "any":
		if len(p.Of) == 0 {
			return fmt.Errorf("%s: predicate type %q requires at least one child", context, p.Type)
		}
		for i, child := range p.Of {
			if err := validatePredicate(child, fmt.Sprintf("%s.%s[%d]", context, p.Type, i)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%s: unknown predicate type %q", context, p.Type)
	}
	return nil
}
