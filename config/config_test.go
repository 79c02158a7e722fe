package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const hookURL = "https://discord.example/api/webhooks/1/abc"

// envMap returns a LookupFunc backed by m, isolating tests from the process
// environment.
func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func parse(t *testing.T, yaml string, env map[string]string) (*Config, error) {
	t.Helper()
	return ParseWithEnv([]byte(yaml), envMap(env))
}

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := parse(t, "webhook_url: "+hookURL, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Lookup.URLTemplate != DefaultURLTemplate {
		t.Errorf("URLTemplate = %q, want default", cfg.Lookup.URLTemplate)
	}
	if cfg.Lookup.UserAgent != "group-scanner/1" {
		t.Errorf("UserAgent = %q, want group-scanner/1", cfg.Lookup.UserAgent)
	}
	if cfg.Lookup.Timeout.Duration() != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Lookup.Timeout.Duration())
	}
	if cfg.Lookup.Match.Type != "ownerless" {
		t.Errorf("Match.Type = %q, want ownerless", cfg.Lookup.Match.Type)
	}
	if cfg.Concurrency.Min != 5 || cfg.Concurrency.Max != 60 || cfg.Concurrency.Initial != 20 {
		t.Errorf("Concurrency = %+v, want 5/60/20", cfg.Concurrency)
	}
	if cfg.RateLimit.TokensPerSec != 200 || cfg.RateLimit.MaxTokens != 500 {
		t.Errorf("RateLimit = %+v, want 200/s cap 500", cfg.RateLimit)
	}
	if cfg.IDs.Min != 9_999_999 || cfg.IDs.Max != 999_999_999 {
		t.Errorf("IDs = [%d, %d], want [9999999, 999999999]", cfg.IDs.Min, cfg.IDs.Max)
	}
	if *cfg.IDs.LikelyWeight != 0.7 {
		t.Errorf("LikelyWeight = %v, want 0.7", *cfg.IDs.LikelyWeight)
	}
	if cfg.Delivery.MaxAttempts != 5 || cfg.Delivery.BaseBackoff.Duration() != 250*time.Millisecond {
		t.Errorf("Delivery = %+v, want 5 attempts from 250ms", cfg.Delivery)
	}
	if cfg.Dedupe.Backend != BackendNone {
		t.Errorf("Dedupe.Backend = %q, want none", cfg.Dedupe.Backend)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json", cfg.Log)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Group Watch
port: 9090
webhook_url: ` + hookURL + `
message_template: "new group {{.ID}}"
lookup:
  url_template: "https://lookup.example/v1/groups/{{.ID}}"
  user_agent: custom/2
  timeout: 2s
  headers:
    Authorization: Bearer token123
  match: null:owner
ids:
  min: 1
  max: 1000
  likely_min: 1
  likely_max: 100
  likely_weight: 0
  seed: 99
concurrency:
  min: 2
  max: 8
  initial: 4
  monitor_interval: 500ms
  cooperative_shrink: true
rate_limit:
  tokens_per_sec: 50
  max_tokens: 100
  denied_backoff: 10ms
  throttle_penalty: 2s
autotune:
  interval: 3s
  window: 50
  low_latency: 100ms
  high_latency: 900ms
  grow_factor: 1.5
  shrink_factor: 0.5
delivery:
  max_attempts: 3
  base_backoff: 100ms
  timeout: 1s
  drain_grace: 2s
dedupe:
  backend: redis
  ttl: 24h
  redis:
    addr: localhost:6379
    db: 2
log:
  level: debug
  format: text
`
	cfg, err := parse(t, yaml, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Group Watch" || cfg.Port != 9090 {
		t.Errorf("Title/Port = %q/%d", cfg.Title, cfg.Port)
	}
	if cfg.Lookup.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("Headers = %v", cfg.Lookup.Headers)
	}
	if cfg.Lookup.Match.Type != "null" || cfg.Lookup.Match.Path != "owner" {
		t.Errorf("Match = %+v, want null:owner", cfg.Lookup.Match)
	}
	if *cfg.IDs.LikelyWeight != 0 {
		t.Errorf("LikelyWeight = %v, want explicit 0 kept", *cfg.IDs.LikelyWeight)
	}
	if cfg.IDs.Seed != 99 {
		t.Errorf("Seed = %d, want 99", cfg.IDs.Seed)
	}
	if !cfg.Concurrency.CooperativeShrink || cfg.Concurrency.MonitorInterval.Duration() != 500*time.Millisecond {
		t.Errorf("Concurrency = %+v", cfg.Concurrency)
	}
	if cfg.RateLimit.ThrottlePenalty.Duration() != 2*time.Second {
		t.Errorf("ThrottlePenalty = %v, want 2s", cfg.RateLimit.ThrottlePenalty.Duration())
	}
	if cfg.AutoTune.Window != 50 || cfg.AutoTune.GrowFactor != 1.5 {
		t.Errorf("AutoTune = %+v", cfg.AutoTune)
	}
	if cfg.Delivery.DrainGrace.Duration() != 2*time.Second {
		t.Errorf("DrainGrace = %v, want 2s", cfg.Delivery.DrainGrace.Duration())
	}
	if cfg.Dedupe.Backend != BackendRedis || cfg.Dedupe.Redis.DB != 2 || cfg.Dedupe.TTL.Duration() != 24*time.Hour {
		t.Errorf("Dedupe = %+v", cfg.Dedupe)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestParse_PredicateShorthand(t *testing.T) {
	tests := []struct {
		name      string
		match     string
		wantType  string
		wantPath  string
		wantValue any
		wantErr   bool
	}{
		{"ownerless", "ownerless", "ownerless", "", nil, false},
		{"null", "null:data.owner", "null", "data.owner", nil, false},
		{"equals bool", "equals:publicEntryAllowed=true", "equals", "publicEntryAllowed", true, false},
		{"equals int", "equals:memberCount=0", "equals", "memberCount", 0, false},
		{"equals string", "equals:state=locked", "equals", "state", "locked", false},
		{"equals missing value", "equals:state", "", "", nil, true},
		{"unknown type", "regex:abc", "", "", nil, true},
		{"unknown name", "everything", "", "", nil, true},
		{"null without path", "null:", "", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := "webhook_url: " + hookURL + "\nlookup:\n  match: \"" + tt.match + "\"\n"
			cfg, err := parse(t, yaml, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			m := cfg.Lookup.Match
			if m.Type != tt.wantType || m.Path != tt.wantPath {
				t.Errorf("Match = %s:%s, want %s:%s", m.Type, m.Path, tt.wantType, tt.wantPath)
			}
			if m.Value != tt.wantValue {
				t.Errorf("Match.Value = %#v, want %#v", m.Value, tt.wantValue)
			}
		})
	}
}

func TestParse_PredicateStructured(t *testing.T) {
	yaml := `
webhook_url: ` + hookURL + `
lookup:
  match:
    all:
      - null:owner
      - type: equals
        path: publicEntryAllowed
        value: true
      - any:
          - equals:memberCount=0
          - null:description
`
	cfg, err := parse(t, yaml, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	m := cfg.Lookup.Match
	if m.Type != "all" || len(m.Of) != 3 {
		t.Fatalf("Match = %+v, want all with 3 children", m)
	}
	if m.Of[1].Type != "equals" || m.Of[1].Value != true {
		t.Errorf("Of[1] = %+v, want equals true", m.Of[1])
	}
	if m.Of[2].Type != "any" || len(m.Of[2].Of) != 2 {
		t.Errorf("Of[2] = %+v, want any with 2 children", m.Of[2])
	}
}

func TestParse_PredicateStructuredErrors(t *testing.T) {
	tests := []struct {
		name  string
		match string
	}{
		{"all and any", "{all: [ownerless], any: [ownerless]}"},
		{"empty all child type", "{all: [{path: x}]}"},
		{"equals without path", "{type: equals, value: 1}"},
		{"sequence", "[ownerless]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := "webhook_url: " + hookURL + "\nlookup:\n  match: " + tt.match + "\n"
			if _, err := parse(t, yaml, nil); err == nil {
				t.Error("Parse() expected error, got nil")
			}
		})
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	yaml := `
webhook_url: ${HOOK}
lookup:
  url_template: "${LOOKUP_BASE:-https://lookup.example}/groups/{{.ID}}"
  headers:
    Authorization: Bearer ${TOKEN}
dedupe:
  backend: postgres
  postgres_dsn: ${DSN}
`
	cfg, err := parse(t, yaml, map[string]string{
		"HOOK":  hookURL,
		"TOKEN": "s3cret",
		"DSN":   "postgres://u:p@db/idscout",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.WebhookURL != hookURL {
		t.Errorf("WebhookURL = %q, want %q", cfg.WebhookURL, hookURL)
	}
	if cfg.Lookup.URLTemplate != "https://lookup.example/groups/{{.ID}}" {
		t.Errorf("URLTemplate = %q", cfg.Lookup.URLTemplate)
	}
	if cfg.Lookup.Headers["Authorization"] != "Bearer s3cret" {
		t.Errorf("Authorization = %q", cfg.Lookup.Headers["Authorization"])
	}
	if cfg.Dedupe.PostgresDSN != "postgres://u:p@db/idscout" {
		t.Errorf("PostgresDSN = %q", cfg.Dedupe.PostgresDSN)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	_, err := parse(t, "webhook_url: ${NOT_SET_ANYWHERE}", nil)
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "NOT_SET_ANYWHERE") {
		t.Errorf("error = %q, want to name the variable", err.Error())
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	yaml := `
webhook_url: https://file.example/hook
port: 8000
concurrency: {min: 1, max: 2}
`
	cfg, err := parse(t, yaml, map[string]string{
		EnvWebhookURL:       hookURL,
		EnvPort:             "4000",
		EnvMinConcurrent:    "3",
		EnvMaxConcurrent:    "30",
		EnvRequestTimeoutMs: "1500",
		EnvTokensPerSec:     "12.5",
		EnvMaxTokens:        "40",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.WebhookURL != hookURL {
		t.Errorf("WebhookURL = %q, want env value", cfg.WebhookURL)
	}
	if cfg.Port != 4000 {
		t.Errorf("Port = %d, want 4000", cfg.Port)
	}
	if cfg.Concurrency.Min != 3 || cfg.Concurrency.Max != 30 {
		t.Errorf("Concurrency = %d..%d, want 3..30", cfg.Concurrency.Min, cfg.Concurrency.Max)
	}
	// initial keeps its own default
	if cfg.Concurrency.Initial != 20 {
		t.Errorf("Initial = %d, want 20", cfg.Concurrency.Initial)
	}
	if cfg.Lookup.Timeout.Duration() != 1500*time.Millisecond {
		t.Errorf("Timeout = %v, want 1.5s", cfg.Lookup.Timeout.Duration())
	}
	if cfg.RateLimit.TokensPerSec != 12.5 || cfg.RateLimit.MaxTokens != 40 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
}

func TestParse_EnvOnly(t *testing.T) {
	cfg, err := ParseWithEnv(nil, envMap(map[string]string{EnvWebhookURL: hookURL}))
	if err != nil {
		t.Fatalf("ParseWithEnv(nil) error = %v", err)
	}
	if cfg.WebhookURL != hookURL {
		t.Errorf("WebhookURL = %q, want %q", cfg.WebhookURL, hookURL)
	}
}

func TestParse_EnvOverrideInvalid(t *testing.T) {
	for _, key := range []string{EnvPort, EnvMinConcurrent, EnvMaxConcurrent, EnvRequestTimeoutMs, EnvTokensPerSec, EnvMaxTokens} {
		t.Run(key, func(t *testing.T) {
			_, err := parse(t, "webhook_url: "+hookURL, map[string]string{key: "lots"})
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("error = %q, want to name %s", err.Error(), key)
			}
		})
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{"missing webhook", `port: 3000`, "webhook_url is required"},
		{"webhook scheme", `webhook_url: ftp://x/hook`, "scheme"},
		{"webhook host", `webhook_url: "https:///hook"`, "host"},
		{"port range", "webhook_url: " + hookURL + "\nport: 70000", "port"},
		{"bad message template", "webhook_url: " + hookURL + "\nmessage_template: \"{{if}}\"", "message_template"},
		{"bad url template", "webhook_url: " + hookURL + "\nlookup: {url_template: \"https://x/{{.ID\"}", "url_template"},
		{"url template field", "webhook_url: " + hookURL + "\nlookup: {url_template: \"https://x/{{.Name}}\"}", "url_template"},
		{"url template scheme", "webhook_url: " + hookURL + "\nlookup: {url_template: \"x/{{.ID}}\"}", "scheme"},
		{"ids inverted", "webhook_url: " + hookURL + "\nids: {min: 10, max: 5}", "ids"},
		{"likely inverted", "webhook_url: " + hookURL + "\nids: {likely_min: 10, likely_max: 5}", "likely range"},
		{"likely weight", "webhook_url: " + hookURL + "\nids: {likely_weight: 1.5}", "likely_weight"},
		{"likely weight NaN", "webhook_url: " + hookURL + "\nids: {likely_weight: .nan}", "likely_weight"},
		{"max below min", "webhook_url: " + hookURL + "\nconcurrency: {min: 10, max: 5}", "concurrency.max"},
		{"negative min", "webhook_url: " + hookURL + "\nconcurrency: {min: -1}", "concurrency.min"},
		{"negative rate", "webhook_url: " + hookURL + "\nrate_limit: {tokens_per_sec: -1}", "tokens_per_sec"},
		{"low above high", "webhook_url: " + hookURL + "\nautotune: {low_latency: 1s, high_latency: 500ms}", "low_latency"},
		{"grow factor", "webhook_url: " + hookURL + "\nautotune: {grow_factor: 0.5}", "grow_factor"},
		{"shrink factor", "webhook_url: " + hookURL + "\nautotune: {shrink_factor: 1.5}", "shrink_factor"},
		{"negative attempts", "webhook_url: " + hookURL + "\ndelivery: {max_attempts: -1}", "max_attempts"},
		{"unknown backend", "webhook_url: " + hookURL + "\ndedupe: {backend: mongo}", "dedupe.backend"},
		{"redis without addr", "webhook_url: " + hookURL + "\ndedupe: {backend: redis}", "redis.addr"},
		{"postgres without dsn", "webhook_url: " + hookURL + "\ndedupe: {backend: postgres}", "postgres_dsn"},
		{"log level", "webhook_url: " + hookURL + "\nlog: {level: loud}", "log.level"},
		{"log format", "webhook_url: " + hookURL + "\nlog: {format: xml}", "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.yaml, nil)
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	yaml := `
this is not: valid: yaml: at all
  - broken
`
	if _, err := parse(t, yaml, nil); err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "10s", 10 * time.Second, false},
		{"milliseconds", "1500ms", 1500 * time.Millisecond, false},
		{"minutes", "2m", 2 * time.Minute, false},
		{"combined", "1m30s", 90 * time.Second, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := "webhook_url: " + hookURL + "\nlookup:\n  timeout: " + tt.input

			cfg, err := parse(t, yaml, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				if !strings.Contains(err.Error(), "invalid duration") {
					t.Errorf("error = %q, want to contain 'invalid duration'", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.Lookup.Timeout.Duration() != tt.want {
				t.Errorf("Timeout = %v, want %v", cfg.Lookup.Timeout.Duration(), tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	env := envMap(map[string]string{
		"TEST_VAR":  "value",
		"EMPTY_VAR": "", // set but empty
	})

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false}, // set var takes precedence
		{"template braces untouched", "https://x/{{.ID}}", "https://x/{{.ID}}", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input, env)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvWebhookURL, "")
	t.Setenv(EnvPort, "")

	path := filepath.Join(t.TempDir(), "idscout.yaml")
	if err := os.WriteFile(path, []byte("webhook_url: "+hookURL+"\nport: 3100\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 3100 {
		t.Errorf("Port = %d, want 3100", cfg.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestParse_ExampleConfig(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "example", "idscout.yaml"))
	if err != nil {
		t.Fatalf("failed to read example config: %v", err)
	}

	cfg, err := ParseWithEnv(data, envMap(nil))
	if err != nil {
		t.Fatalf("ParseWithEnv() error = %v", err)
	}

	if cfg.WebhookURL != "http://localhost:9999/webhook" {
		t.Errorf("WebhookURL = %q, want the mock webhook", cfg.WebhookURL)
	}
	if cfg.Lookup.URLTemplate != "http://localhost:9999/v1/groups/{{.ID}}" {
		t.Errorf("Lookup.URLTemplate = %q", cfg.Lookup.URLTemplate)
	}
	if cfg.Lookup.Match.Type != "all" || len(cfg.Lookup.Match.Of) != 2 {
		t.Errorf("Lookup.Match = %+v, want all of two", cfg.Lookup.Match)
	}
	if cfg.Dedupe.Backend != BackendMemory {
		t.Errorf("Dedupe.Backend = %q, want %q", cfg.Dedupe.Backend, BackendMemory)
	}
	if !cfg.Concurrency.CooperativeShrink {
		t.Error("Concurrency.CooperativeShrink = false, want true")
	}
}
