// Package cache defines a small byte-oriented cache port and its adapters.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key. A miss is (nil, false, nil), never an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Tiered reads L1 first, then L2, and backfills L1 on an L2 hit.
// Writes and deletes go to both tiers.
type Tiered struct {
	L1 Cache
	L2 Cache

	// L1TTL bounds how long a backfilled L1 entry may outlive an L2 invalidation
	// performed by another process.
	L1TTL time.Duration
}

func NewTiered(l1, l2 Cache, l1TTL time.Duration) *Tiered {
	return &Tiered{L1: l1, L2: l2, L1TTL: l1TTL}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if t.L1 != nil {
		if v, ok, err := t.L1.Get(ctx, key); err == nil && ok {
			return v, true, nil
		}
	}
	if t.L2 == nil {
		return nil, false, nil
	}
	v, ok, err := t.L2.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if t.L1 != nil {
		_ = t.L1.Set(ctx, key, v, t.l1TTL())
	}
	return v, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if t.L2 != nil {
		if err := t.L2.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	if t.L1 != nil {
		l1 := t.l1TTL()
		if ttl > 0 && ttl < l1 {
			l1 = ttl
		}
		return t.L1.Set(ctx, key, value, l1)
	}
	return nil
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	var firstErr error
	if t.L1 != nil {
		if err := t.L1.Delete(ctx, key); err != nil {
			firstErr = err
		}
	}
	if t.L2 != nil {
		if err := t.L2.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *Tiered) l1TTL() time.Duration {
	if t.L1TTL <= 0 {
		return 5 * time.Second
	}
	return t.L1TTL
}
