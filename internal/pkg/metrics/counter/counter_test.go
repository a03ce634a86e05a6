package counter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzeed/uzeed/internal/pkg/env"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	host := env.GetEnv("CACHE_HOST", "localhost")
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       13,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: %v", err)
	}
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestAddViewBuffersPerProfile(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, addView(ctx, rdb, 7))
	require.NoError(t, addView(ctx, rdb, 7))
	require.NoError(t, addView(ctx, rdb, 9))

	got, err := rdb.HGetAll(ctx, profileViewsKey).Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"7": "2", "9": "1"}, got)
}

func TestFlushWithoutPendingViews(t *testing.T) {
	rdb := newTestRedis(t)

	n, err := flushHashToTable(context.Background(), rdb, nil, profileViewsKey, "users", "profile_views")

	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestFlusherFlushesOnStop(t *testing.T) {
	calls := make(chan struct{}, 10)
	f := NewFlusher(time.Hour)
	f.flush = func() (int, error) {
		calls <- struct{}{}
		return 1, nil
	}

	f.Start()
	f.Start()
	f.Stop()
	f.Stop()

	assert.Len(t, calls, 1)
}
