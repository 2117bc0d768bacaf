package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLedger(t *testing.T) (*InMemoryEventLedger, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewInMemoryEventLedger(0)
	l.now = clock.Now
	t.Cleanup(func() { _ = l.Close() })
	return l, clock
}

func TestInMemoryEventLedger_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		l, _ := newTestLedger(t)

		isNew, err := l.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = l.MarkProcessed(ctx, "evt-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "repeat should be detected")
	})

	t.Run("expired entry can be marked again", func(t *testing.T) {
		l, clock := newTestLedger(t)

		_, err := l.MarkProcessed(ctx, "evt-2", time.Minute)
		require.NoError(t, err)

		clock.Advance(time.Minute)

		isNew, err := l.MarkProcessed(ctx, "evt-2", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("concurrent marks have a single winner", func(t *testing.T) {
		l, _ := newTestLedger(t)

		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := l.MarkProcessed(ctx, "evt-race", time.Hour)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, winners)
	})
}

func TestInMemoryEventLedger_IsProcessed(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLedger(t)

	ok, err := l.IsProcessed(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.MarkProcessed(ctx, "evt-3", 10*time.Second)
	require.NoError(t, err)

	ok, err = l.IsProcessed(ctx, "evt-3")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(11 * time.Second)
	ok, err = l.IsProcessed(ctx, "evt-3")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry should not count")
}

func TestInMemoryEventLedger_Sweep(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLedger(t)

	for i := 0; i < 5; i++ {
		_, err := l.MarkProcessed(ctx, fmt.Sprintf("short-%d", i), time.Second)
		require.NoError(t, err)
	}
	_, err := l.MarkProcessed(ctx, "long", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 6, l.Len())

	clock.Advance(2 * time.Second)
	l.sweep()

	assert.Equal(t, 1, l.Len())
	ok, err := l.IsProcessed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryEventLedger_Close(t *testing.T) {
	l := NewInMemoryEventLedger(5 * time.Millisecond)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close should be a no-op")
}

func TestLedgerFactory_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		f := NewLedgerFactory(testRedisConfig(), WithSweepInterval(0))
		l, err := f.Create(ctx, LedgerMemory)
		require.NoError(t, err)
		defer l.Close()
		assert.IsType(t, &InMemoryEventLedger{}, l)
	})

	t.Run("unknown kind", func(t *testing.T) {
		f := NewLedgerFactory(testRedisConfig())
		_, err := f.Create(ctx, "etcd")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "etcd")
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		f := NewLedgerFactory(testRedisConfig(), WithSweepInterval(0))
		l, err := f.Create(ctx, LedgerRedis)
		require.NoError(t, err)
		defer l.Close()
		assert.IsType(t, &InMemoryEventLedger{}, l)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		f := NewLedgerFactory(testRedisConfig(), WithInMemoryFallback(false))
		_, err := f.Create(ctx, LedgerRedis)
		require.Error(t, err)
	})
}
