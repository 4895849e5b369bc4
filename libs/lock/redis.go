package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker hands out short-lived leases so two callers can't race the same
// booking slot between the availability check and the insert.
type Locker struct {
	rdb    *redis.Client
	prefix string
}

func New(rdb *redis.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = "lock"
	}
	return &Locker{rdb: rdb, prefix: prefix}
}

// Acquire returns false when the lease is already held by someone else.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return l.rdb.SetNX(ctx, l.prefix+":"+key, 1, ttl).Result()
}

func (l *Locker) Release(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.prefix+":"+key).Err()
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
