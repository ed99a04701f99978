package tenant

import (
	"context"
	"sort"
	"sync"
	"time"

	"compliance-platform/internal/catalog"
)

// MemoryRepo is an in-memory Repository for tests and local runs.
type MemoryRepo struct {
	mu       sync.RWMutex
	tenants  map[string]Tenant
	slugs    map[string]string
	services map[string]map[catalog.ServiceCode]bool
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		tenants:  make(map[string]Tenant),
		slugs:    make(map[string]string),
		services: make(map[string]map[catalog.ServiceCode]bool),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, t Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slugs[t.Slug]; ok {
		return ErrSlugTaken
	}
	r.tenants[t.ID] = t
	r.slugs[t.Slug] = t.ID
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, t Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tenants[t.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Status = t.Status
	cur.DisabledAt = t.DisabledAt
	cur.DisabledBy = t.DisabledBy
	cur.DisabledReason = t.DisabledReason
	cur.UpdatedAt = t.UpdatedAt
	r.tenants[t.ID] = cur
	return nil
}

func (r *MemoryRepo) ListChildren(ctx context.Context, parentID string) ([]Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tenant, 0)
	for _, t := range r.tenants {
		if t.ParentID == parentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r *MemoryRepo) SetService(ctx context.Context, tenantID string, code catalog.ServiceCode, enabled bool, actorID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenantID]; !ok {
		return ErrNotFound
	}
	m, ok := r.services[tenantID]
	if !ok {
		m = make(map[catalog.ServiceCode]bool)
		r.services[tenantID] = m
	}
	m[code] = enabled
	return nil
}

func (r *MemoryRepo) ServiceEnabled(ctx context.Context, tenantID string, code catalog.ServiceCode) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[tenantID][code], nil
}

func (r *MemoryRepo) Services(ctx context.Context, tenantID string) (map[catalog.ServiceCode]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[catalog.ServiceCode]bool, len(r.services[tenantID]))
	for k, v := range r.services[tenantID] {
		out[k] = v
	}
	return out, nil
}
