package slug

import (
	"context"
	"sync"
)

// MemoryStore is a dev-only fallback when neither Redis nor Postgres is
// configured. Mappings do not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	bySlug map[string]Mapping
	byDrop map[string]Mapping
}

// NewMemoryStore constructs an in-memory Store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bySlug: make(map[string]Mapping),
		byDrop: make(map[string]Mapping),
	}
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

// Save stores both directions of the mapping.
func (s *MemoryStore) Save(ctx context.Context, m Mapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bySlug[m.Slug]; ok {
		return ErrExists
	}
	s.bySlug[m.Slug] = m
	s.byDrop[m.DropAddress] = m
	return nil
}

// Resolve returns the drop address bound to slug.
func (s *MemoryStore) Resolve(ctx context.Context, slug string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.bySlug[slug]
	if !ok {
		return "", ErrNotFound
	}
	return m.DropAddress, nil
}

// LookupByDrops returns the known mappings for the given drop addresses.
func (s *MemoryStore) LookupByDrops(ctx context.Context, dropAddresses []string) (map[string]Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Mapping, len(dropAddresses))
	for _, addr := range dropAddresses {
		if m, ok := s.byDrop[addr]; ok {
			out[addr] = m
		}
	}
	return out, nil
}
