package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"spiretool/internal/num"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	byKey       map[string][]Record
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.byKey = make(map[string][]Record)
	s.order = nil
	return nil
}

func (s *MemoryStore) Save(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("memory store is not initialized")
	}
	recs := s.byKey[r.Key]
	for i := range recs {
		if recs[i].ID == r.ID {
			recs[i] = r
			return nil
		}
	}
	if recs == nil {
		s.order = append(s.order, r.Key)
	}
	s.byKey[r.Key] = append(recs, r)
	return nil
}

func (s *MemoryStore) Best(_ context.Context, key string, budget num.Number) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best Record
	found := false
	for _, r := range s.byKey[key] {
		if !r.Fits(budget) {
			continue
		}
		if !found || better(r, best) {
			best, found = r, true
		}
	}
	return best, found, nil
}

func (s *MemoryStore) All(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, key := range s.order {
		out = append(out, s.byKey[key]...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out, nil
}
