package pricing

import (
	"context"
	"sort"
	"sync"

	"compliance-platform/internal/catalog"

	"github.com/google/uuid"
)

type priceKey struct {
	tenantID string
	code     catalog.ServiceCode
}

// MemoryRepo is a simple in-memory repository useful for tests and early development.
type MemoryRepo struct {
	mu     sync.RWMutex
	prices map[priceKey]ServicePrice
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{prices: make(map[priceKey]ServicePrice)}
}

func (r *MemoryRepo) Get(ctx context.Context, tenantID string, code catalog.ServiceCode) (ServicePrice, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prices[priceKey{tenantID, code}]
	return p, ok, nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, p ServicePrice) (ServicePrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := priceKey{p.TenantID, p.ServiceCode}
	if prev, ok := r.prices[k]; ok {
		p.ID = prev.ID
		p.CreatedAt = prev.CreatedAt
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	r.prices[k] = p
	return p, nil
}

func (r *MemoryRepo) List(ctx context.Context, tenantID string) ([]ServicePrice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServicePrice, 0)
	for k, p := range r.prices {
		if k.tenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceCode < out[j].ServiceCode })
	return out, nil
}

// Delete removes a row entirely. Used by tests to model missing levels.
func (r *MemoryRepo) Delete(tenantID string, code catalog.ServiceCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.prices, priceKey{tenantID, code})
}
