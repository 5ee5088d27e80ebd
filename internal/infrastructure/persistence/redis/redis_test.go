package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alchemorsel/intake/internal/domain/export"
	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestQuotaStoreUpdateAndGet(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewQuotaStore(client, "intake:", 48*time.Hour)
	ctx := context.Background()
	key := quota.Key("alice", "2024-03-01")

	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, rec)

	for i := 0; i < 2; i++ {
		require.NoError(t, store.Update(ctx, key, func(cur *quota.Record) (*quota.Record, error) {
			if cur == nil {
				return &quota.Record{Key: key, Identity: "alice", Count: 1}, nil
			}
			next := *cur
			next.Count++
			return &next, nil
		}))
	}

	rec, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, 48*time.Hour, mr.TTL("intake:quota:"+key))
}

func TestQuotaStoreNilResultSkipsWrite(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewQuotaStore(client, "", time.Hour)

	require.NoError(t, store.Update(context.Background(), "k", func(*quota.Record) (*quota.Record, error) {
		return nil, nil
	}))
	assert.False(t, mr.Exists("quota:k"))
}

func TestQuotaStoreConcurrentUpdates(t *testing.T) {
	_, client := newTestClient(t)
	store := NewQuotaStore(client, "", time.Hour)
	const limit = 6
	var wg sync.WaitGroup

	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(context.Background(), "k", func(cur *quota.Record) (*quota.Record, error) {
				count := 0
				if cur != nil {
					count = cur.Count
				}
				if count >= limit {
					return nil, nil
				}
				return &quota.Record{Key: "k", Count: count + 1}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, limit, rec.Count)
}

func TestStageStoreExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewStageStore(client, "intake:")
	ctx := context.Background()

	list := &export.ShoppingList{Handle: "h1", Identity: "alice", Title: "Pizza", Ingredients: []string{"500 g Mehl"}}
	require.NoError(t, store.Put(ctx, list, 10*time.Minute))

	got, err := store.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, list.Ingredients, got.Ingredients)
	assert.Equal(t, "alice", got.Identity)

	mr.FastForward(11 * time.Minute)
	_, err = store.Get(ctx, "h1")
	assert.ErrorIs(t, err, export.ErrStageNotFound)
}
