package infra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T, opts ...RedisStoreOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_SetGetExpiry(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", time.Second))

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	mr.FastForward(2 * time.Second)

	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("k"))
}

func TestRedisStore_SetWithoutTTL(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	assert.Equal(t, time.Duration(0), mr.TTL("k"))
}

func TestRedisStore_AppendAndExpire(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	n, err := s.Append(ctx, "analytics_batch:2024-05-01", "first")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Append(ctx, "analytics_batch:2024-05-01", "second")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := mr.List("analytics_batch:2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, list)

	ok, err := s.Expire(ctx, "analytics_batch:2024-05-01", 300*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 300*time.Second, mr.TTL("analytics_batch:2024-05-01"))

	ok, err = s.Expire(ctx, "missing", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ExpireZeroPersists(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "batch", "first")
	require.NoError(t, err)
	ok, err := s.Expire(ctx, "batch", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Expire(ctx, "batch", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("batch"))
	assert.Zero(t, mr.TTL("batch"))

	// sem expiração prévia a chave continua lá e o retorno segue true
	ok, err = s.Expire(ctx, "batch", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Expire(ctx, "missing", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_KeysMatchingWithPrefix(t *testing.T) {
	s, mr := setupRedisStore(t, WithKeyPrefix("refund:"))
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "rate_limit:a", "{}", 0))
	require.NoError(t, s.Set(ctx, "rate_limit:b", "{}", 0))
	require.NoError(t, s.Set(ctx, "active_sessions_count", "3", 0))
	require.NoError(t, mr.Set("rate_limit:foreign", "{}"))

	assert.True(t, mr.Exists("refund:rate_limit:a"))

	keys, err := s.KeysMatching(ctx, "rate_limit:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rate_limit:a", "rate_limit:b"}, keys)

	require.NoError(t, s.Delete(ctx, "rate_limit:a"))
	assert.False(t, mr.Exists("refund:rate_limit:a"))
}

func TestRedisStore_KeysMatchingSmallScanCount(t *testing.T) {
	s, _ := setupRedisStore(t, WithScanCount(1))
	ctx := context.Background()

	for _, k := range []string{"rate_limit:a", "rate_limit:b", "rate_limit:c", "other"} {
		require.NoError(t, s.Set(ctx, k, "1", 0))
	}

	keys, err := s.KeysMatching(ctx, "rate_limit:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rate_limit:a", "rate_limit:b", "rate_limit:c"}, keys)
}

func TestRedisStore_Incr(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	n, err := s.Incr(ctx, "active_sessions_count", 300*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(ctx, "active_sessions_count", 300*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 300*time.Second, mr.TTL("active_sessions_count"))
}

func TestRedisStore_ErrorsAreWrapped(t *testing.T) {
	s, mr := setupRedisStore(t)
	ctx := context.Background()

	mr.SetError("ERR boom")

	_, _, err := s.Get(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get")

	_, err = s.Append(ctx, "k", "v")
	require.Error(t, err)
}

func TestEscapeRedisPattern(t *testing.T) {
	assert.Equal(t, `rate_limit:\?\[x\]*`, escapeRedisPattern("rate_limit:?[x]*"))
}
