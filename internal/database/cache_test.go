package database

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedSummary struct {
	Count     int      `json:"count"`
	Countries []string `json:"countries"`
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryCache(time.Minute, quietLogger())
	ctx := context.Background()

	var got cachedSummary
	found, err := cache.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	in := cachedSummary{Count: 2, Countries: []string{"France", "Japan"}}
	require.NoError(t, cache.Set(ctx, "k", in, 0))
	assert.Equal(t, 1, cache.ItemCount())

	found, err = cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, got)

	// mutating the decoded copy must not leak into the cache
	got.Countries[0] = "Brazil"
	var again cachedSummary
	_, err = cache.Get(ctx, "k", &again)
	require.NoError(t, err)
	assert.Equal(t, "France", again.Countries[0])

	require.NoError(t, cache.Delete(ctx, "k"))
	found, err = cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "memory", cache.Backend())
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache(time.Minute, quietLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", cachedSummary{Count: 1}, 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	var got cachedSummary
	found, err := cache.Get(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(QueryResultKey, "csv:data/worldcities.csv", "pop=0..100|capital=any|countries=")
	b := CacheKey(QueryResultKey, "csv:data/worldcities.csv", "pop=0..101|capital=any|countries=")
	c := CacheKey(QueryResultKey, "database:cities", "pop=0..100|capital=any|countries=")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, CacheKey(QueryResultKey, "csv:data/worldcities.csv", "pop=0..100|capital=any|countries="))
	assert.Len(t, a, len("cities:query:")+32)
}

func TestNewCacheFallsBackToMemory(t *testing.T) {
	m, err := NewManager(&Config{}, quietLogger())
	require.NoError(t, err)
	defer m.Close()

	assert.False(t, m.HasDatabase())
	assert.False(t, m.HasRedis())
	assert.ErrorIs(t, m.Migrate(), ErrDatabaseDisabled)
	assert.ErrorIs(t, m.PingDatabase(context.Background()), ErrDatabaseDisabled)
	assert.ErrorIs(t, m.PingRedis(context.Background()), ErrRedisDisabled)

	cache := NewCache(m, time.Minute, quietLogger())
	assert.Equal(t, "memory", cache.Backend())
}
