package quota

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "quota_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	store := newTestSQLiteStore(t)
	assert.NotNil(t, store)
}

func TestNewSQLiteStore_EmptyDSN(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestSQLiteStore_RecordAndCount(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()
	now := time.Now()
	windowStart := now.Add(-24 * time.Hour)

	count, err := store.Record(ctx, "alice", now, windowStart)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.Record(ctx, "alice", now.Add(time.Second), windowStart)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.Count(ctx, "alice", windowStart)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Other identities are unaffected.
	count, err = store.Count(ctx, "bob", windowStart)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLiteStore_PruneStaleRows(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Record(ctx, "alice", base, base.Add(-24*time.Hour))
	require.NoError(t, err)
	_, err = store.Record(ctx, "alice", base.Add(2*time.Hour), base.Add(-22*time.Hour))
	require.NoError(t, err)

	// Window advanced past the first row.
	count, err := store.Count(ctx, "alice", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A row exactly at the window start is stale.
	count, err = store.Count(ctx, "alice", base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLiteStore_TryConsume(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()
	now := time.Now()
	windowStart := now.Add(-24 * time.Hour)

	for i := 1; i <= 4; i++ {
		count, allowed, err := store.TryConsume(ctx, "alice", now, windowStart, 4)
		require.NoError(t, err)
		assert.True(t, allowed, "consume %d should be admitted", i)
		assert.Equal(t, i, count)
	}

	count, allowed, err := store.TryConsume(ctx, "alice", now, windowStart, 4)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 4, count)
}

func TestSQLiteStore_TryConsume_Concurrent(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()
	now := time.Now()
	windowStart := now.Add(-24 * time.Hour)

	const limit = 4
	const attempts = 20

	var wg sync.WaitGroup
	admitted := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, allowed, err := store.TryConsume(ctx, "alice", now, windowStart, limit)
			assert.NoError(t, err)
			admitted <- allowed
		}()
	}
	wg.Wait()
	close(admitted)

	admittedCount := 0
	for ok := range admitted {
		if ok {
			admittedCount++
		}
	}
	assert.Equal(t, limit, admittedCount)
}

func TestSQLiteStore_Reset(t *testing.T) {
	store := newTestSQLiteStore(t)

	ctx := context.Background()
	now := time.Now()
	windowStart := now.Add(-24 * time.Hour)

	_, err := store.Record(ctx, "alice", now, windowStart)
	require.NoError(t, err)
	_, err = store.Record(ctx, "bob", now, windowStart)
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	for _, identity := range []string{"alice", "bob"} {
		count, err := store.Count(ctx, identity, windowStart)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "quota_persist.db")

	ctx := context.Background()
	now := time.Now()
	windowStart := now.Add(-24 * time.Hour)

	store, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	_, err = store.Record(ctx, "alice", now, windowStart)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx, "alice", windowStart)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
