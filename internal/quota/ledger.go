package quota

import (
	"context"
	"time"
)

// Ledger enforces a rolling quota per identity on top of a Store. It owns the
// window math and clamping; the store owns persistence and atomicity.
type Ledger struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option configures optional Ledger behavior.
type Option func(*Ledger)

// WithClock overrides the time source. Used by tests to move the window.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger permitting limit requests per identity within
// the rolling window.
func NewLedger(store Store, limit int, window time.Duration, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured maximum requests per window.
func (l *Ledger) Limit() int { return l.limit }

// Remaining returns how many quota units the identity has left. It prunes
// stale usage as a side effect but does not consume anything; calling it
// twice in a row returns the same value.
func (l *Ledger) Remaining(ctx context.Context, identity string) (int, error) {
	now := l.now()
	count, err := l.store.Count(ctx, identity, now.Add(-l.window))
	if err != nil {
		return 0, err
	}
	return clamp(l.limit - count), nil
}

// Record unconditionally consumes one unit and returns the post-increment
// remaining quota, floored at zero.
func (l *Ledger) Record(ctx context.Context, identity string) (int, error) {
	now := l.now()
	count, err := l.store.Record(ctx, identity, now, now.Add(-l.window))
	if err != nil {
		return 0, err
	}
	return clamp(l.limit - count), nil
}

// TryConsume atomically checks the quota and, if a unit is available,
// consumes it. It returns the post-operation remaining quota and whether
// the request was admitted.
func (l *Ledger) TryConsume(ctx context.Context, identity string) (remaining int, allowed bool, err error) {
	now := l.now()
	count, allowed, err := l.store.TryConsume(ctx, identity, now, now.Add(-l.window), l.limit)
	if err != nil {
		return 0, false, err
	}
	return clamp(l.limit - count), allowed, nil
}

// Reset zeroes all usage. Administrative operation for test environments.
func (l *Ledger) Reset(ctx context.Context) error {
	return l.store.Reset(ctx)
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
