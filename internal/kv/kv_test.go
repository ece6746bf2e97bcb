package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestStores_IncrGetDelete(t *testing.T) {
	ctx := context.Background()

	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			n, err := store.Incr(ctx, "counter")
			require.NoError(t, err)
			require.Equal(t, int64(1), n)

			n, err = store.Incr(ctx, "counter")
			require.NoError(t, err)
			require.Equal(t, int64(2), n)

			val, err := store.Get(ctx, "counter")
			require.NoError(t, err)
			require.Equal(t, "2", val)

			require.NoError(t, store.SetWithTTL(ctx, "k", "v", time.Minute))
			val, err = store.Get(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, "v", val)

			require.NoError(t, store.Delete(ctx, "counter", "k"))
			_, err = store.Get(ctx, "counter")
			require.ErrorIs(t, err, ErrNotFound)
			_, err = store.Get(ctx, "k")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	_, err := store.Incr(ctx, "counter")
	require.NoError(t, err)
	require.NoError(t, store.Expire(ctx, "counter", time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "counter")
	require.ErrorIs(t, err, ErrNotFound)

	// Counter restarts once the window has lapsed.
	n, err := store.Incr(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetWithTTL(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}
