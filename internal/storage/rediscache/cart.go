package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/vitrine/internal/domain/cart"
)

var _ cart.Repository = (*CartStore)(nil)

// CartStore implements cart.Repository with one JSON value per session.
// Every save extends the TTL.
type CartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCartStore returns a CartStore. A zero ttl uses TTLCart.
func NewCartStore(rdb *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = TTLCart
	}
	return &CartStore{rdb: rdb, ttl: ttl}
}

func cartKey(storeID, sessionID string) string {
	return fmt.Sprintf(keyCart, storeID, sessionID)
}

// Load returns the session cart, or an empty cart when none is stored.
func (s *CartStore) Load(ctx context.Context, storeID, sessionID string) (*cart.Cart, error) {
	data, err := s.rdb.Get(ctx, cartKey(storeID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(storeID, sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	c := cart.New(storeID, sessionID)
	if err := json.Unmarshal(data, c); err != nil {
		// Undecodable carts are replaced by an empty one.
		return cart.New(storeID, sessionID), nil
	}
	c.StoreID, c.SessionID = storeID, sessionID
	return c, nil
}

// Save stores the cart and refreshes its TTL.
func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling cart: %w", err)
	}
	if err := s.rdb.Set(ctx, cartKey(c.StoreID, c.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}

// Delete removes the session cart.
func (s *CartStore) Delete(ctx context.Context, storeID, sessionID string) error {
	if err := s.rdb.Del(ctx, cartKey(storeID, sessionID)).Err(); err != nil {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}
