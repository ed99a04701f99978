package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Ristretto is an in-process L1 cache backed by dgraph-io/ristretto.
type Ristretto struct {
	c *ristretto.Cache[string, []byte]
}

// NewRistretto creates an L1 cache. maxCostBytes is the maximum total
// size of cached values in bytes.
func NewRistretto(maxCostBytes int64) (*Ristretto, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 8 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto{c: c}, nil
}

func (r *Ristretto) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := r.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return v, true, nil
}

// Set waits for the write buffer so a subsequent Get in the same process observes it.
func (r *Ristretto) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	r.c.SetWithTTL(key, value, int64(len(value)), ttl)
	r.c.Wait()
	return nil
}

func (r *Ristretto) Delete(_ context.Context, key string) error {
	r.c.Del(key)
	return nil
}

func (r *Ristretto) Close() {
	r.c.Close()
}
