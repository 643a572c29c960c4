package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "glrecon:reconcile:"

// RedisLocker shares period locks between processes through Redis.
// A lock that is never released expires after ttl.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

// Dial connects to addr and verifies the connection with a ping.
func Dial(ctx context.Context, addr string, ttl time.Duration) (*RedisLocker, *redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(rdb, ttl), rdb, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (Release, error) {
	lk, err := l.client.Obtain(ctx, keyPrefix+key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrHeld
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		err := lk.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
