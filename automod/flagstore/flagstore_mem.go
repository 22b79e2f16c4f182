package flagstore

import (
	"context"
	"slices"
	"sync"
)

type MemFlagStore struct {
	lk   sync.Mutex
	sets map[string]map[string]struct{}
}

var _ FlagStore = (*MemFlagStore)(nil)

func NewMemFlagStore() *MemFlagStore {
	return &MemFlagStore{sets: make(map[string]map[string]struct{})}
}

// Flags come back sorted, matching the redis implementation.
func (s *MemFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := make([]string, 0, len(s.sets[key]))
	for f := range s.sets[key] {
		out = append(out, f)
	}
	slices.Sort(out)
	return out, nil
}

func (s *MemFlagStore) Add(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(flags))
		s.sets[key] = set
	}
	for _, f := range flags {
		set[f] = struct{}{}
	}
	return nil
}

func (s *MemFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	for _, f := range flags {
		delete(set, f)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}
