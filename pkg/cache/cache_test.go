package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mapCache struct {
	mu      sync.Mutex
	m       map[string][]byte
	getErr  error
	deletes int
}

func newMapCache() *mapCache { return &mapCache{m: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.m, key)
	return nil
}

func TestTiered_BackfillsL1FromL2(t *testing.T) {
	l1, l2 := newMapCache(), newMapCache()
	_ = l2.Set(context.Background(), "k", []byte("v"), time.Minute)

	tc := NewTiered(l1, l2, time.Second)
	v, ok, err := tc.Get(context.Background(), "k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("expected hit from L2, got %q %v %v", v, ok, err)
	}
	if _, ok, _ := l1.Get(context.Background(), "k"); !ok {
		t.Fatalf("expected L1 backfill")
	}
}

func TestTiered_DeleteHitsBothTiers(t *testing.T) {
	l1, l2 := newMapCache(), newMapCache()
	tc := NewTiered(l1, l2, time.Second)
	_ = tc.Set(context.Background(), "k", []byte("v"), time.Minute)
	if err := tc.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if l1.deletes != 1 || l2.deletes != 1 {
		t.Fatalf("expected delete on both tiers, got %d/%d", l1.deletes, l2.deletes)
	}
	if _, ok, _ := tc.Get(context.Background(), "k"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestTiered_L2ErrorSurfacesOnMiss(t *testing.T) {
	l1, l2 := newMapCache(), newMapCache()
	l2.getErr = errors.New("redis down")
	tc := NewTiered(l1, l2, time.Second)
	if _, _, err := tc.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected L2 error")
	}
}

func TestRistretto_SetGetDelete(t *testing.T) {
	r, err := NewRistretto(1 << 20)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	if err := r.Set(ctx, "price:KYC_BASIC", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := r.Get(ctx, "price:KYC_BASIC")
	if err != nil || !ok || string(v) != `{"a":1}` {
		t.Fatalf("expected hit, got %q %v %v", v, ok, err)
	}
	_ = r.Delete(ctx, "price:KYC_BASIC")
	if _, ok, _ := r.Get(ctx, "price:KYC_BASIC"); ok {
		t.Fatalf("expected miss after delete")
	}
}
