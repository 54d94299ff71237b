package payments

import (
	"context"
	"errors"
	"time"

	"github.com/wacka-accessories/wacka-backend/pkg/redis"
)

// CallbackGuard is the Redis fast path that drops repeat callbacks before
// they reach the database.
type CallbackGuard struct {
	store redis.GuardStore
	ttl   time.Duration
}

func NewCallbackGuard(store redis.GuardStore, ttl time.Duration) (*CallbackGuard, error) {
	if store == nil {
		return nil, errors.New("guard store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &CallbackGuard{store: store, ttl: ttl}, nil
}

// Claim returns true when this is the first delivery seen for the id.
func (g *CallbackGuard) Claim(ctx context.Context, checkoutRequestID string) (bool, error) {
	if checkoutRequestID == "" {
		return false, errors.New("checkout request id is required")
	}
	return g.store.ClaimOnce(ctx, redis.GuardMpesaCallback, checkoutRequestID, g.ttl)
}

// Release lets a provider retry reprocess the callback.
func (g *CallbackGuard) Release(ctx context.Context, checkoutRequestID string) error {
	if checkoutRequestID == "" {
		return errors.New("checkout request id is required")
	}
	return g.store.ReleaseClaim(ctx, redis.GuardMpesaCallback, checkoutRequestID)
}
