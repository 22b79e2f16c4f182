package cachestore

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

const redisCachePrefix = "warden/cache/"

// Two-tier cache: a small TinyLFU in front of redis. The local tier's TTL is capped at a minute so purges made by other replicas become visible quickly.
type RedisCacheStore struct {
	Data *cache.Cache
	TTL  time.Duration
}

var _ CacheStore = (*RedisCacheStore)(nil)

func NewRedisCacheStore(redisURL string, ttl time.Duration) (*RedisCacheStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.TODO()).Err(); err != nil {
		return nil, err
	}
	return NewRedisCacheStoreFromClient(rdb, ttl), nil
}

func NewRedisCacheStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisCacheStore {
	return &RedisCacheStore{
		Data: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(10_000, min(ttl, time.Minute)),
		}),
		TTL: ttl,
	}
}

func (s *RedisCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	var val string
	err := s.Data.Get(ctx, redisCachePrefix+name+"/"+key, &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", nil
	}
	return val, err
}

func (s *RedisCacheStore) Set(ctx context.Context, name, key string, val string) error {
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisCachePrefix + name + "/" + key,
		Value: val,
		TTL:   s.TTL,
	})
}

func (s *RedisCacheStore) Purge(ctx context.Context, name, key string) error {
	err := s.Data.Delete(ctx, redisCachePrefix+name+"/"+key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
