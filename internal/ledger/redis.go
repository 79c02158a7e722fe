package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idscout:hit:"

// Redis is a [Ledger] shared between processes through Redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Ledger = (*Redis)(nil)

// RedisConfig configures [OpenRedis].
type RedisConfig struct {
	Addr     string        // Redis address (e.g., "localhost:6379")
	Password string        // Redis password (empty for no auth)
	DB       int           // Redis database number
	TTL      time.Duration // how long hits are remembered; zero means forever
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Addr, err)
	}
	return &Redis{client: client, ttl: cfg.TTL}, nil
}

// MarkSeen sets the hit key only if it does not exist.
func (r *Redis) MarkSeen(ctx context.Context, id int64) (bool, error) {
	first, err := r.client.SetNX(ctx, redisKey(id), time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %d: %w", id, err)
	}
	return first, nil
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func redisKey(id int64) string {
	return redisKeyPrefix + strconv.FormatInt(id, 10)
}
