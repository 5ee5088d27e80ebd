package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/intake/internal/domain/export"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"github.com/redis/go-redis/v9"
)

// StageStore keeps staged shopping lists with a Redis TTL
type StageStore struct {
	client redis.UniversalClient
	prefix string
}

// NewStageStore creates a stage store
func NewStageStore(client redis.UniversalClient, prefix string) *StageStore {
	return &StageStore{client: client, prefix: prefix + "stage:"}
}

var _ outbound.StageStore = (*StageStore)(nil)

// Put stores list under its handle for ttl
func (s *StageStore) Put(ctx context.Context, list *export.ShoppingList, ttl time.Duration) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode shopping list: %w", err)
	}
	return s.client.Set(ctx, s.prefix+list.Handle, data, ttl).Err()
}

// Get returns the staged list or export.ErrStageNotFound
func (s *StageStore) Get(ctx context.Context, handle string) (*export.ShoppingList, error) {
	data, err := s.client.Get(ctx, s.prefix+handle).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, export.ErrStageNotFound
	}
	if err != nil {
		return nil, err
	}

	var list export.ShoppingList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode shopping list: %w", err)
	}
	return &list, nil
}
