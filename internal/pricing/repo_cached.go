package pricing

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"compliance-platform/internal/catalog"
	"compliance-platform/internal/metrics"
	"compliance-platform/pkg/cache"
	"compliance-platform/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// CachedRepository fronts a Repository with a cache.Cache.
//
// Only rows that exist are cached, active or not, so a newly configured price is
// visible as soon as the next miss. Upsert invalidates the key after the write.
// Concurrent misses for one key share a single backing read. A read that raced
// with an Upsert of its key is returned but never cached.
type CachedRepository struct {
	next    Repository
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group

	// mu orders cache fills against invalidations; gens counts Upserts per key.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewCachedRepository(next Repository, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *CachedRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRepository{next: next, cache: c, ttl: ttl, metrics: m, gens: make(map[string]uint64)}
}

func cacheKey(tenantID string, code catalog.ServiceCode) string {
	if tenantID == "" {
		tenantID = "_platform"
	}
	return "price:" + tenantID + ":" + string(code)
}

type lookup struct {
	price ServicePrice
	found bool
}

func (r *CachedRepository) Get(ctx context.Context, tenantID string, code catalog.ServiceCode) (ServicePrice, bool, error) {
	key := cacheKey(tenantID, code)

	if b, ok, err := r.cache.Get(ctx, key); err != nil {
		// Cache trouble degrades to a direct read.
		r.metrics.ObservePriceCache("error")
		logger.From(ctx).Warn("price cache get failed", "key", key, "err", err)
	} else if ok {
		var p ServicePrice
		if err := json.Unmarshal(b, &p); err == nil {
			r.metrics.ObservePriceCache("hit")
			return p, true, nil
		}
	}
	r.metrics.ObservePriceCache("miss")

	v, err, _ := r.group.Do(key, func() (any, error) {
		gen := r.generation(key)
		p, ok, err := r.next.Get(ctx, tenantID, code)
		if err != nil || !ok {
			return lookup{}, err
		}
		r.fill(ctx, key, gen, p)
		return lookup{price: p, found: true}, nil
	})
	if err != nil {
		return ServicePrice{}, false, err
	}
	l := v.(lookup)
	return l.price, l.found, nil
}

// GetDirect reads the backing repository, bypassing the cache. Writers use it
// so they never build on a cached row.
func (r *CachedRepository) GetDirect(ctx context.Context, tenantID string, code catalog.ServiceCode) (ServicePrice, bool, error) {
	return r.next.Get(ctx, tenantID, code)
}

func (r *CachedRepository) Upsert(ctx context.Context, p ServicePrice) (ServicePrice, error) {
	out, err := r.next.Upsert(ctx, p)
	if err != nil {
		return ServicePrice{}, err
	}
	key := cacheKey(p.TenantID, p.ServiceCode)
	r.mu.Lock()
	r.gens[key]++
	r.group.Forget(key)
	err = r.cache.Delete(ctx, key)
	r.mu.Unlock()
	if err != nil {
		logger.From(ctx).Warn("price cache invalidation failed", "tenant_id", p.TenantID, "service_code", p.ServiceCode, "err", err)
	}
	return out, nil
}

func (r *CachedRepository) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[key]
}

// fill caches p unless key was invalidated after gen was taken.
func (r *CachedRepository) fill(ctx context.Context, key string, gen uint64, p ServicePrice) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[key] != gen {
		r.metrics.ObservePriceCache("stale")
		return
	}
	if err := r.cache.Set(ctx, key, b, r.ttl); err != nil {
		logger.From(ctx).Warn("price cache set failed", "key", key, "err", err)
	}
}

func (r *CachedRepository) List(ctx context.Context, tenantID string) ([]ServicePrice, error) {
	return r.next.List(ctx, tenantID)
}
