package tenant

import (
	"context"
	"errors"
	"time"

	"compliance-platform/internal/catalog"
)

var (
	ErrNotFound          = errors.New("tenant: not found")
	ErrSlugTaken         = errors.New("tenant: slug already in use")
	ErrInvalidTenant     = errors.New("tenant: invalid tenant")
	ErrInvalidParent     = errors.New("tenant: parent must be an existing top-level tenant")
	ErrNotSubTenant      = errors.New("tenant: sub-tenant does not belong to tenant")
	ErrInvalidTransition = errors.New("tenant: invalid status transition")
)

// Repository persists tenants and their per-service enablement flags.
// A missing (tenant, service) row means the service is disabled.
type Repository interface {
	Create(ctx context.Context, t Tenant) error
	Get(ctx context.Context, id string) (Tenant, error)
	UpdateStatus(ctx context.Context, t Tenant) error
	ListChildren(ctx context.Context, parentID string) ([]Tenant, error)

	SetService(ctx context.Context, tenantID string, code catalog.ServiceCode, enabled bool, actorID string, at time.Time) error
	ServiceEnabled(ctx context.Context, tenantID string, code catalog.ServiceCode) (bool, error)
	Services(ctx context.Context, tenantID string) (map[catalog.ServiceCode]bool, error)
}
