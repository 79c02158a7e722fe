package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	postgresMaxConns = 4

	createHitsTable = `CREATE TABLE IF NOT EXISTS idscout_hits (
		id      BIGINT PRIMARY KEY,
		seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	insertHit = `INSERT INTO idscout_hits (id, seen_at) VALUES ($1, now())
		ON CONFLICT (id) DO NOTHING`

	// an expired row counts as unseen and is refreshed
	upsertHitWithTTL = `INSERT INTO idscout_hits AS h (id, seen_at) VALUES ($1, now())
		ON CONFLICT (id) DO UPDATE SET seen_at = EXCLUDED.seen_at
		WHERE h.seen_at < now() - $2::float8 * interval '1 second'`
)

// Postgres is a durable [Ledger] backed by a single table.
type Postgres struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

var _ Ledger = (*Postgres)(nil)

// OpenPostgres connects to dsn and creates the hits table if needed.
func OpenPostgres(ctx context.Context, dsn string, ttl time.Duration) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	cfg.MaxConns = postgresMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	if _, err := pool.Exec(ctx, createHitsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Postgres{pool: pool, ttl: ttl}, nil
}

// MarkSeen inserts id; the hit is new when a row was written.
func (p *Postgres) MarkSeen(ctx context.Context, id int64) (bool, error) {
	var err error
	var affected int64
	if p.ttl > 0 {
		tag, execErr := p.pool.Exec(ctx, upsertHitWithTTL, id, p.ttl.Seconds())
		affected, err = tag.RowsAffected(), execErr
	} else {
		tag, execErr := p.pool.Exec(ctx, insertHit, id)
		affected, err = tag.RowsAffected(), execErr
	}
	if err != nil {
		return false, fmt.Errorf("recording hit %d: %w", id, err)
	}
	return affected == 1, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
