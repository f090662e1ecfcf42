package abuse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryCounterStore(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewInMemoryCounterStore().WithClock(func() time.Time { return clock })

	t.Run("increment keeps the original expiry", func(t *testing.T) {
		n, err := store.IncrementWithExpiry(ctx, "k", time.Minute)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		clock = clock.Add(30 * time.Second)
		n, err = store.IncrementWithExpiry(ctx, "k", time.Minute)
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		// 31s later the original minute has elapsed; the counter restarts.
		clock = clock.Add(31 * time.Second)
		n, err = store.IncrementWithExpiry(ctx, "k", time.Minute)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})

	t.Run("setnx holds until ttl", func(t *testing.T) {
		ok, err := store.SetNX(ctx, "lock", 5*time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = store.SetNX(ctx, "lock", 5*time.Second)
		require.NoError(t, err)
		require.False(t, ok)

		clock = clock.Add(6 * time.Second)
		ok, err = store.SetNX(ctx, "lock", 5*time.Second)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("get reports zero for unknown or expired keys", func(t *testing.T) {
		n, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		require.Zero(t, n)
	})
}
