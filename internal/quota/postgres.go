package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// PostgresStore persists usage timestamps in PostgreSQL, allowing multiple
// gateway instances to share one ledger. Atomicity of TryConsume is provided
// by a per-identity advisory lock held for the duration of the transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS quota_usage (
	identity TEXT NOT NULL,
	used_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quota_usage_identity ON quota_usage (identity, used_at);
`

// NewPostgresStore creates a PostgreSQL usage store and initializes the
// schema if it does not exist.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required for postgres quota store")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Count prunes stale rows and returns the in-window usage count.
func (p *PostgresStore) Count(ctx context.Context, identity string, windowStart time.Time) (int, error) {
	var count int
	err := p.withIdentityLock(ctx, identity, func(tx pgx.Tx) error {
		var err error
		count, err = pruneAndCountPg(ctx, tx, identity, windowStart)
		return err
	})
	return count, err
}

// Record prunes, inserts now, and returns the post-increment count.
func (p *PostgresStore) Record(ctx context.Context, identity string, now, windowStart time.Time) (int, error) {
	var count int
	err := p.withIdentityLock(ctx, identity, func(tx pgx.Tx) error {
		var err error
		count, err = pruneAndCountPg(ctx, tx, identity, windowStart)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO quota_usage (identity, used_at) VALUES ($1, $2)`,
			identity, now); err != nil {
			return fmt.Errorf("failed to record usage: %w", err)
		}
		count++
		return nil
	})
	return count, err
}

// TryConsume admits and records the request only if fewer than limit rows
// are in the window. The advisory lock serializes consumers of the same
// identity across all connections and instances.
func (p *PostgresStore) TryConsume(ctx context.Context, identity string, now, windowStart time.Time, limit int) (int, bool, error) {
	var (
		count   int
		allowed bool
	)
	err := p.withIdentityLock(ctx, identity, func(tx pgx.Tx) error {
		var err error
		count, err = pruneAndCountPg(ctx, tx, identity, windowStart)
		if err != nil {
			return err
		}
		if count >= limit {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO quota_usage (identity, used_at) VALUES ($1, $2)`,
			identity, now); err != nil {
			return fmt.Errorf("failed to record usage: %w", err)
		}
		count++
		allowed = true
		return nil
	})
	return count, allowed, err
}

// Reset removes all usage rows.
func (p *PostgresStore) Reset(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM quota_usage`); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// withIdentityLock runs fn inside a transaction holding a per-identity
// advisory lock. The lock is released automatically on commit or rollback.
func (p *PostgresStore) withIdentityLock(ctx context.Context, identity string, fn func(tx pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, identity); err != nil {
		return fmt.Errorf("failed to acquire identity lock: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func pruneAndCountPg(ctx context.Context, tx pgx.Tx, identity string, windowStart time.Time) (int, error) {
	if _, err := tx.Exec(ctx,
		`DELETE FROM quota_usage WHERE identity = $1 AND used_at <= $2`,
		identity, windowStart); err != nil {
		return 0, fmt.Errorf("failed to prune stale usage: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM quota_usage WHERE identity = $1`,
		identity).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}
