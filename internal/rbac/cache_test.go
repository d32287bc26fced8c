package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, "", func() time.Duration { return ttl })
	return cache, mr
}

func countingLoader(perms []Permission, calls *int) LoaderFunc {
	return func(ctx context.Context) ([]Permission, error) {
		*calls++
		return perms, nil
	}
}

func TestCacheGetPopulatesOnce(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	perms := []Permission{{ID: 1, Name: "articles.edit"}, {ID: 2, Name: "articles.view"}}
	calls := 0

	got, err := cache.Get(ctx, 7, countingLoader(perms, &calls))
	require.NoError(t, err)
	require.Equal(t, perms, got)
	require.Equal(t, 1, calls)

	got, err = cache.Get(ctx, 7, countingLoader(perms, &calls))
	require.NoError(t, err)
	require.Equal(t, perms, got)
	require.Equal(t, 1, calls, "live entry must not re-invoke the loader")
}

func TestCacheInvalidateForcesReload(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	calls := 0
	loader := countingLoader([]Permission{{ID: 1, Name: "a"}}, &calls)

	_, err := cache.Get(ctx, 7, loader)
	require.NoError(t, err)
	_, err = cache.Get(ctx, 7, loader)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	require.NoError(t, cache.Invalidate(ctx, 7))

	_, err = cache.Get(ctx, 7, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestCacheInvalidateMissingKeyIsNoop(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	require.NoError(t, cache.Invalidate(context.Background(), 404))
}

func TestCacheEntryExpires(t *testing.T) {
	cache, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	calls := 0
	loader := countingLoader([]Permission{{ID: 1, Name: "a"}}, &calls)

	_, err := cache.Get(ctx, 7, loader)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	mr.FastForward(31 * time.Second)

	_, err = cache.Get(ctx, 7, loader)
	require.NoError(t, err)
	require.Equal(t, 2, calls, "expired entry must repopulate")
}

func TestCacheTTLReadPerPopulation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ttl := time.Minute
	cache := NewCache(client, "", func() time.Duration { return ttl })
	ctx := context.Background()

	calls := 0
	loader := countingLoader([]Permission{{ID: 1, Name: "a"}}, &calls)

	_, err := cache.Get(ctx, 1, loader)
	require.NoError(t, err)
	require.Equal(t, time.Minute, mr.TTL(cache.Key(1)))

	// A config change applies to the next population without rebuilding
	// the cache.
	ttl = 10 * time.Second
	_, err = cache.Get(ctx, 2, loader)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, mr.TTL(cache.Key(2)))
}

func TestCacheLoaderErrorPropagates(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	boom := errors.New("store down")

	_, err := cache.Get(context.Background(), 7, func(ctx context.Context) ([]Permission, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestCacheKeyFormat(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	require.Equal(t, DefaultKeyPrefix+"_42", cache.Key(42))
}
