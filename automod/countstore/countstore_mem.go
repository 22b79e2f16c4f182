package countstore

import (
	"context"
	"sync"
	"time"
)

// In-process counters. Old buckets are never evicted, which is fine for tests and single-node development.
type MemCountStore struct {
	// Overrides the wall clock when set.
	Now func() time.Time

	lk       sync.RWMutex
	counts   map[string]int
	distinct map[string]map[string]struct{}
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts:   make(map[string]int),
		distinct: make(map[string]map[string]struct{}),
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	k := windowFor(period).key(name, val, clock(s.Now))
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.counts[k], nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	now := clock(s.Now)
	s.lk.Lock()
	defer s.lk.Unlock()
	for _, w := range windows {
		s.counts[w.key(name, val, now)]++
	}
	return nil
}

func (s *MemCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	k := windowFor(period).key(name, bucket, clock(s.Now))
	s.lk.RLock()
	defer s.lk.RUnlock()
	return len(s.distinct[k]), nil
}

func (s *MemCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	now := clock(s.Now)
	s.lk.Lock()
	defer s.lk.Unlock()
	for _, w := range windows {
		k := w.key(name, bucket, now)
		set, ok := s.distinct[k]
		if !ok {
			set = make(map[string]struct{})
			s.distinct[k] = set
		}
		set[val] = struct{}{}
	}
	return nil
}
