package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/vitrine/internal/domain/bundle"
)

var _ bundle.Store = (*BundleStore)(nil)

// BundleStore implements bundle.Store with one key per store holding the
// encoded bundle.
type BundleStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBundleStore returns a BundleStore. A zero ttl uses TTLBundle.
func NewBundleStore(rdb *redis.Client, ttl time.Duration) *BundleStore {
	if ttl <= 0 {
		ttl = TTLBundle
	}
	return &BundleStore{rdb: rdb, ttl: ttl}
}

// Load reads and decodes the cached bundle.
func (s *BundleStore) Load(ctx context.Context, storeID string) (*bundle.Bundle, error) {
	data, err := s.rdb.Get(ctx, fmt.Sprintf(keyBundle, storeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, bundle.ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("loading bundle: %w", err)
	}
	return bundle.Decode(data)
}

// Save encodes and stores b.
func (s *BundleStore) Save(ctx context.Context, storeID string, b *bundle.Bundle) error {
	data, err := bundle.Encode(b)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, fmt.Sprintf(keyBundle, storeID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving bundle: %w", err)
	}
	return nil
}
