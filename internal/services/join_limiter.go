package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

// JoinLimiter bounds group code guesses per (group, user).
type JoinLimiter interface {
	Allow(ctx context.Context, groupID uint64, userID uuid.UUID) (bool, error)
}

type noopJoinLimiter struct{}

func NewNoopJoinLimiter() JoinLimiter { return noopJoinLimiter{} }

func (noopJoinLimiter) Allow(context.Context, uint64, uuid.UUID) (bool, error) { return true, nil }

type redisJoinLimiter struct {
	log    *logger.Logger
	rdb    *goredis.Client
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisJoinLimiter counts attempts in fixed windows. Redis failures let the
// attempt through.
func NewRedisJoinLimiter(baseLog *logger.Logger, rdb *goredis.Client, limit int, window time.Duration) JoinLimiter {
	if rdb == nil || limit <= 0 {
		return NewNoopJoinLimiter()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &redisJoinLimiter{
		log:    baseLog.With("service", "JoinLimiter"),
		rdb:    rdb,
		limit:  int64(limit),
		window: window,
		prefix: "cg:join",
	}
}

func (l *redisJoinLimiter) key(groupID uint64, userID uuid.UUID, now time.Time) string {
	bucket := now.UnixNano() / int64(l.window)
	return fmt.Sprintf("%s:%d:%s:%d", l.prefix, groupID, userID, bucket)
}

func (l *redisJoinLimiter) Allow(ctx context.Context, groupID uint64, userID uuid.UUID) (bool, error) {
	key := l.key(groupID, userID, time.Now())
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("join limiter unavailable, allowing attempt", "group_id", groupID, "error", err)
		return true, nil
	}
	return incr.Val() <= l.limit, nil
}
