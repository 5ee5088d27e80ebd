// Package memory provides in-memory store implementations for development and tests
package memory

import (
	"context"
	"sync"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/ports/outbound"
)

// QuotaStore keeps quota records in a map guarded by one mutex
type QuotaStore struct {
	data  map[string]quota.Record
	mutex sync.Mutex
}

// NewQuotaStore creates a new in-memory quota store
func NewQuotaStore() *QuotaStore {
	return &QuotaStore{data: make(map[string]quota.Record)}
}

var _ outbound.QuotaStore = (*QuotaStore)(nil)

// Get returns a copy of the record for key, or nil
func (s *QuotaStore) Get(ctx context.Context, key string) (*quota.Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	rec, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Update holds the lock for the whole read-modify-write
func (s *QuotaStore) Update(ctx context.Context, key string, fn quota.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var current *quota.Record
	if rec, ok := s.data[key]; ok {
		current = &rec
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next != nil {
		s.data[key] = *next
	}
	return nil
}

// Len returns the number of stored records
func (s *QuotaStore) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.data)
}
