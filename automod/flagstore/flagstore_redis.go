package flagstore

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"
)

const redisFlagPrefix = "warden/flags/"

// One redis set per key.
type RedisFlagStore struct {
	Client *redis.Client
}

var _ FlagStore = (*RedisFlagStore)(nil)

func NewRedisFlagStore(redisURL string) (*RedisFlagStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.TODO()).Err(); err != nil {
		return nil, err
	}
	return NewRedisFlagStoreFromClient(rdb), nil
}

func NewRedisFlagStoreFromClient(rdb *redis.Client) *RedisFlagStore {
	return &RedisFlagStore{Client: rdb}
}

func (s *RedisFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	members, err := s.Client.SMembers(ctx, redisFlagPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

func (s *RedisFlagStore) Add(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	return s.Client.SAdd(ctx, redisFlagPrefix+key, members(flags)...).Err()
}

// Removing flags that are not set is not an error.
func (s *RedisFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	return s.Client.SRem(ctx, redisFlagPrefix+key, members(flags)...).Err()
}

func members(flags []string) []any {
	out := make([]any, len(flags))
	for i, f := range flags {
		out[i] = f
	}
	return out
}
