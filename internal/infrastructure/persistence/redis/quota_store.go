package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 20

// QuotaStore keeps quota records as JSON strings under WATCH-guarded transactions
type QuotaStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewQuotaStore creates a quota store. Records expire ttl after their last write.
func NewQuotaStore(client redis.UniversalClient, prefix string, ttl time.Duration) *QuotaStore {
	return &QuotaStore{client: client, prefix: prefix + "quota:", ttl: ttl}
}

var _ outbound.QuotaStore = (*QuotaStore)(nil)

// Get returns the record for key, or nil when none exists
func (s *QuotaStore) Get(ctx context.Context, key string) (*quota.Record, error) {
	return s.read(ctx, s.client, key)
}

// Update applies fn optimistically, retrying when another writer touched the key
func (s *QuotaStore) Update(ctx context.Context, key string, fn quota.UpdateFunc) error {
	redisKey := s.prefix + key

	txf := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode quota record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("quota update for %s: too much contention", key)
}

func (s *QuotaStore) read(ctx context.Context, c redis.Cmdable, key string) (*quota.Record, error) {
	data, err := c.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec quota.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode quota record: %w", err)
	}
	return &rec, nil
}
