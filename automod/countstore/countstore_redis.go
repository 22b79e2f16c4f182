package countstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisCountPrefix    = "warden/count/"
	redisDistinctPrefix = "warden/distinct/"
)

// Plain counters are INCR keys; distinct counters are HyperLogLogs, so they are approximate at high cardinality.
type RedisCountStore struct {
	Client *redis.Client
	// Overrides the wall clock when set.
	Now func() time.Time
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.TODO()).Err(); err != nil {
		return nil, err
	}
	return NewRedisCountStoreFromClient(rdb), nil
}

// Shares an existing connection pool.
func NewRedisCountStoreFromClient(rdb *redis.Client) *RedisCountStore {
	return &RedisCountStore{Client: rdb}
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	key := redisCountPrefix + windowFor(period).key(name, val, clock(s.Now))
	c, err := s.Client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return c, err
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	return s.pipelineWindows(ctx, redisCountPrefix, name, val, func(p redis.Pipeliner, key string) {
		p.Incr(ctx, key)
	})
}

func (s *RedisCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	key := redisDistinctPrefix + windowFor(period).key(name, bucket, clock(s.Now))
	c, err := s.Client.PFCount(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return int(c), err
}

func (s *RedisCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	return s.pipelineWindows(ctx, redisDistinctPrefix, name, bucket, func(p redis.Pipeliner, key string) {
		p.PFAdd(ctx, key, val)
	})
}

// Applies one write per window in a single round-trip, refreshing the expiry of bounded buckets.
func (s *RedisCountStore) pipelineWindows(ctx context.Context, prefix, name, val string, write func(redis.Pipeliner, string)) error {
	now := clock(s.Now)
	pipe := s.Client.Pipeline()
	for _, w := range windows {
		key := prefix + w.key(name, val, now)
		write(pipe, key)
		if w.ttl > 0 {
			pipe.Expire(ctx, key, w.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}
