package setstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
}

// Named sets of lower-cased strings, held in memory.
type MemSetStore struct {
	lk   sync.RWMutex
	sets map[string]map[string]struct{}
}

var _ SetStore = (*MemSetStore)(nil)

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{sets: make(map[string]map[string]struct{})}
}

// Membership is case-insensitive. A set that was never loaded contains nothing.
func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	_, ok := s.sets[name][strings.ToLower(val)]
	return ok, nil
}

// Adds values to a named set, creating it if needed.
func (s *MemSetStore) Add(name string, vals ...string) {
	s.lk.Lock()
	defer s.lk.Unlock()
	set, ok := s.sets[name]
	if !ok {
		set = make(map[string]struct{}, len(vals))
		s.sets[name] = set
	}
	for _, v := range vals {
		set[strings.ToLower(v)] = struct{}{}
	}
}

// Names of all loaded sets with their sizes.
func (s *MemSetStore) Sizes() map[string]int {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make(map[string]int, len(s.sets))
	for name, set := range s.sets {
		out[name] = len(set)
	}
	return out
}

// Loads a JSON object mapping set names to lists of values. Sets in the file replace any existing set of the same name.
func (s *MemSetStore) LoadFromFileJSON(p string) error {
	raw, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	var sets map[string][]string
	if err := json.Unmarshal(raw, &sets); err != nil {
		return fmt.Errorf("parsing set file %s: %w", p, err)
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	for name, vals := range sets {
		set := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			set[strings.ToLower(v)] = struct{}{}
		}
		s.sets[name] = set
	}
	return nil
}

// Whether the domain, or any parent domain of it, is in the named set.
func InSetDomainSuffix(ctx context.Context, ss SetStore, name, domain string) (bool, error) {
	d := strings.ToLower(strings.TrimSuffix(domain, "."))
	for d != "" {
		ok, err := ss.InSet(ctx, name, d)
		if err != nil || ok {
			return ok, err
		}
		_, parent, found := strings.Cut(d, ".")
		if !found {
			break
		}
		d = parent
	}
	return false, nil
}
