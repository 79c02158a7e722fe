package ledger

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by [Open].
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Ledger remembers which hits have already been notified.
//
// Implementations must be safe for concurrent use.
type Ledger interface {
	// MarkSeen records id and reports whether this is the first time it
	// was seen within the retention period.
	MarkSeen(ctx context.Context, id int64) (first bool, err error)

	// Close releases any connections held by the ledger.
	Close() error
}

// Config selects and configures a ledger backend.
type Config struct {
	// Backend is one of none, memory, redis or postgres. Empty means none.
	Backend string
	// TTL is how long a hit is remembered. Zero means forever.
	TTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string
}

// Open returns the ledger named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return Nop{}, nil
	case BackendMemory:
		return NewMemory(cfg.TTL), nil
	case BackendRedis:
		l, err := OpenRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("opening redis ledger: %w", err)
		}
		return l, nil
	case BackendPostgres:
		l, err := OpenPostgres(ctx, cfg.PostgresDSN, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres ledger: %w", err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// Nop treats every hit as new.
type Nop struct{}

// MarkSeen always reports first.
func (Nop) MarkSeen(context.Context, int64) (bool, error) { return true, nil }

// Close does nothing.
func (Nop) Close() error { return nil }
