// Package quota implements the per-identity rolling-window usage ledger that
// meters access to the generation endpoint. Usage is a sequence of request
// timestamps per identity; entries older than the window are pruned eagerly
// on every access, never by a background sweep. The admission check and the
// usage increment are fused into one atomic TryConsume per identity so
// concurrent requests cannot both pass the check when only one unit remains.
package quota

import (
	"context"
	"time"
)

// Store persists per-identity usage timestamps. Implementations must be safe
// for concurrent use, must prune entries older than windowStart on every
// operation, and must make TryConsume atomic per identity.
type Store interface {
	// Count prunes stale entries and returns how many usage timestamps
	// remain inside the window. The prune is a deliberate side effect.
	Count(ctx context.Context, identity string, windowStart time.Time) (int, error)

	// Record prunes stale entries, unconditionally appends now, and
	// returns the post-increment count.
	Record(ctx context.Context, identity string, now, windowStart time.Time) (int, error)

	// TryConsume prunes stale entries and, if fewer than limit remain,
	// appends now. It returns the resulting count and whether the unit
	// was consumed. The check and the append happen atomically.
	TryConsume(ctx context.Context, identity string, now, windowStart time.Time, limit int) (count int, allowed bool, err error)

	// Reset removes all usage for all identities.
	Reset(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
