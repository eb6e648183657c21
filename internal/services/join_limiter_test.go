package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

func TestNoopLimiterAlwaysAllows(t *testing.T) {
	ok, err := NewNoopJoinLimiter().Allow(context.Background(), 1, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.IsType(t, noopJoinLimiter{}, NewRedisJoinLimiter(logger.Nop(), nil, 10, time.Minute))
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	lim := NewRedisJoinLimiter(logger.Nop(), rdb, 1, time.Minute)

	ok, err := lim.Allow(context.Background(), 7, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterKeysByWindow(t *testing.T) {
	l := &redisJoinLimiter{window: time.Minute, prefix: "cg:join"}
	user := uuid.MustParse("00000000-0000-4000-8000-000000000001")
	t0 := time.Unix(600, 0)
	assert.Equal(t, "cg:join:3:00000000-0000-4000-8000-000000000001:10", l.key(3, user, t0))
	assert.Equal(t, l.key(3, user, t0), l.key(3, user, t0.Add(59*time.Second)))
	assert.NotEqual(t, l.key(3, user, t0), l.key(3, user, t0.Add(time.Minute)))
}

func TestRedisLimiterCountsAttempts(t *testing.T) {
	addr := testRedisAddr(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	defer rdb.Close()
	lim := NewRedisJoinLimiter(logger.Nop(), rdb, 2, time.Minute)
	user := uuid.New()

	for i, want := range []bool{true, true, false} {
		ok, err := lim.Allow(context.Background(), 99, user)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}
}
