// Package firestore provides Cloud Firestore backed quota and recipe stores
package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// QuotaStore keeps one document per identity and day.
// Firestore may re-run the transaction body, so fn must be free of side effects.
type QuotaStore struct {
	client     *firestore.Client
	collection string
}

// NewQuotaStore creates a quota store over the named collection
func NewQuotaStore(client *firestore.Client, collection string) *QuotaStore {
	return &QuotaStore{client: client, collection: collection}
}

var _ outbound.QuotaStore = (*QuotaStore)(nil)

// Get returns the record for key, or nil when none exists
func (s *QuotaStore) Get(ctx context.Context, key string) (*quota.Record, error) {
	snap, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	return decodeQuota(snap, err)
}

// Update runs fn inside a Firestore transaction
func (s *QuotaStore) Update(ctx context.Context, key string, fn quota.UpdateFunc) error {
	ref := s.client.Collection(s.collection).Doc(key)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := decodeQuota(tx.Get(ref))
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}
		return tx.Set(ref, next)
	})
}

func decodeQuota(snap *firestore.DocumentSnapshot, err error) (*quota.Record, error) {
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec quota.Record
	if err := snap.DataTo(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
