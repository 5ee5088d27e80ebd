package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/intake/internal/domain/export"
	"github.com/alchemorsel/intake/internal/ports/outbound"
)

type stagedItem struct {
	list      export.ShoppingList
	expiresAt time.Time
}

// StageStore holds staged shopping lists with a TTL
type StageStore struct {
	data  map[string]stagedItem
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewStageStore creates a stage store and starts its expiry sweeper
func NewStageStore() *StageStore {
	s := newStageStore(time.Now)
	go s.cleanup(time.Minute)
	return s
}

func newStageStore(now func() time.Time) *StageStore {
	return &StageStore{
		data: make(map[string]stagedItem),
		now:  now,
		stop: make(chan struct{}),
	}
}

var _ outbound.StageStore = (*StageStore)(nil)

// Put stores a list until ttl elapses
func (s *StageStore) Put(ctx context.Context, list *export.ShoppingList, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[list.Handle] = stagedItem{list: *list, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get returns export.ErrStageNotFound for unknown or expired handles
func (s *StageStore) Get(ctx context.Context, handle string) (*export.ShoppingList, error) {
	s.mutex.RLock()
	item, ok := s.data[handle]
	s.mutex.RUnlock()

	if !ok || !s.now().Before(item.expiresAt) {
		return nil, export.ErrStageNotFound
	}
	list := item.list
	return &list, nil
}

// Close stops the expiry sweeper
func (s *StageStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// cleanup removes expired items
func (s *StageStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *StageStore) sweep() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for key, item := range s.data {
		if !now.Before(item.expiresAt) {
			delete(s.data, key)
		}
	}
}
