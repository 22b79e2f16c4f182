package cachestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// In-process cache with LRU eviction and a fixed TTL. Safe for concurrent use.
type MemCacheStore struct {
	lru *expirable.LRU[string, string]
}

var _ CacheStore = (*MemCacheStore)(nil)

func NewMemCacheStore(capacity int, ttl time.Duration) *MemCacheStore {
	return &MemCacheStore{lru: expirable.NewLRU[string, string](capacity, nil, ttl)}
}

func (s *MemCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	v, _ := s.lru.Get(name + "/" + key)
	return v, nil
}

func (s *MemCacheStore) Set(ctx context.Context, name, key string, val string) error {
	s.lru.Add(name+"/"+key, val)
	return nil
}

func (s *MemCacheStore) Purge(ctx context.Context, name, key string) error {
	s.lru.Remove(name + "/" + key)
	return nil
}

// Number of live entries, for tests and debugging.
func (s *MemCacheStore) Len() int {
	return s.lru.Len()
}
