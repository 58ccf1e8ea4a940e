package infra

import (
	"context"
	"testing"
	"time"

	"refund-intake/intake/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var statsEvents = []domain.StatsEvent{
	{Key: "a", Allowed: true, Gated: false},
	{Key: "a", Allowed: true, Gated: true},
	{Key: "a", Allowed: false, Gated: true},
	{Key: "b", Allowed: false, Gated: true},
}

func TestMemoryStatsStore_Record(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	for _, ev := range statsEvents {
		require.NoError(t, s.Record(context.Background(), ev))
	}

	assert.Equal(t, Counters{Allowed: 2, Denied: 2, Bypassed: 1}, s.Total())
	assert.Equal(t, Counters{Allowed: 2, Denied: 1, Bypassed: 1}, s.ByKey()["a"])
	assert.Equal(t, Counters{Denied: 1}, s.ByKey()["b"])
}

func TestRedisStatsStore_Record(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	s := NewRedisStatsStore(rdb, WithStatsPrefix("stats:"), WithStatsTTL(time.Hour), WithStatsTrackKeys(true))
	for _, ev := range statsEvents {
		ev.At = at
		require.NoError(t, s.Record(context.Background(), ev))
	}

	assert.Equal(t, "1", mr.HGet("stats:total", "bypassed"))
	assert.Equal(t, "1", mr.HGet("stats:total", "allowed"))
	assert.Equal(t, "2", mr.HGet("stats:total", "denied"))
	assert.Equal(t, "2", mr.HGet("stats:minute:202405011230", "denied"))
	assert.Equal(t, time.Hour, mr.TTL("stats:key:a"))
}

func TestPrometheusStatsStore_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusStatsStore(reg)
	for _, ev := range statsEvents {
		require.NoError(t, s.Record(context.Background(), ev))
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(s.Decisions().WithLabelValues("bypassed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.Decisions().WithLabelValues("allowed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(s.Decisions().WithLabelValues("denied")))
}
