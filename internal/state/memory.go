package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore is the in-process Store used by tests and by dev deployments
// running without Redis.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]map[string][]byte
	locks *keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]map[string][]byte),
		locks: newKeyedMutex(),
	}
}

func (s *MemoryStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil, false, nil
	}
	data, ok := ns[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (s *MemoryStore) Set(_ context.Context, namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state marshal %s/%s: %w", namespace, key, err)
	}
	// Callers pass fiber's zero-copy route params as keys; map assignment
	// replaces the stored key string, so clone to detach it from the
	// request buffer before it is recycled.
	key = strings.Clone(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		s.data[namespace] = ns
	}
	ns[key] = data
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, namespace string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil, nil
	}
	out := make([][]byte, 0, len(ns))
	for _, data := range ns {
		cp := make([]byte, len(data))
		copy(cp, data)
		out = append(out, cp)
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, namespace, key string, fn UpdateFunc) error {
	m := s.locks.lock(namespace + ":" + key)
	defer m.Unlock()

	data, ok, err := s.Get(ctx, namespace, key)
	if err != nil {
		return err
	}
	next, err := fn(data, ok)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return s.Set(ctx, namespace, key, next)
}
