package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists usage timestamps in a SQLite database so quota state
// survives process restarts. Each TryConsume runs prune, count, and insert
// inside one transaction; SQLite's writer lock serializes concurrent
// consumers, which is what makes the check-then-insert atomic.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS quota_usage (
	identity TEXT NOT NULL,
	used_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_quota_usage_identity ON quota_usage (identity, used_at);
`

// NewSQLiteStore opens (and if necessary initializes) a SQLite usage store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required for sqlite quota store")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite handles one writer at a time; a single connection
	// avoids SQLITE_BUSY churn under concurrent TryConsume calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Count prunes stale rows and returns the in-window usage count.
func (s *SQLiteStore) Count(ctx context.Context, identity string, windowStart time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	count, err := pruneAndCountSQLite(ctx, tx, identity, windowStart)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return count, nil
}

// Record prunes, inserts now, and returns the post-increment count.
func (s *SQLiteStore) Record(ctx context.Context, identity string, now, windowStart time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	count, err := pruneAndCountSQLite(ctx, tx, identity, windowStart)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quota_usage (identity, used_at) VALUES (?, ?)`,
		identity, now.UnixNano()); err != nil {
		return 0, fmt.Errorf("failed to record usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return count + 1, nil
}

// TryConsume admits and records the request only if fewer than limit rows
// are in the window, all within one transaction.
func (s *SQLiteStore) TryConsume(ctx context.Context, identity string, now, windowStart time.Time, limit int) (int, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	count, err := pruneAndCountSQLite(ctx, tx, identity, windowStart)
	if err != nil {
		return 0, false, err
	}

	if count >= limit {
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("failed to commit: %w", err)
		}
		return count, false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO quota_usage (identity, used_at) VALUES (?, ?)`,
		identity, now.UnixNano()); err != nil {
		return 0, false, fmt.Errorf("failed to record usage: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit: %w", err)
	}
	return count + 1, true, nil
}

// Reset removes all usage rows.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quota_usage`); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func pruneAndCountSQLite(ctx context.Context, tx *sql.Tx, identity string, windowStart time.Time) (int, error) {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM quota_usage WHERE identity = ? AND used_at <= ?`,
		identity, windowStart.UnixNano()); err != nil {
		return 0, fmt.Errorf("failed to prune stale usage: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quota_usage WHERE identity = ?`,
		identity).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}
