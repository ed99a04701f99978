package pricing

import (
	"context"
	"errors"
	"fmt"

	"compliance-platform/internal/catalog"
	"compliance-platform/pkg/utils"
)

var (
	ErrPriceNotConfigured = errors.New("pricing: price not configured")
	ErrInvalidPrice       = errors.New("pricing: invalid price")
	ErrPriceNotFound      = errors.New("pricing: price not found")
	ErrUnknownTenant      = errors.New("pricing: unknown tenant")
)

// Repository abstracts price persistence. tenantID "" addresses the platform default.
// Implementation can be Postgres, cached, etc.
type Repository interface {
	Get(ctx context.Context, tenantID string, code catalog.ServiceCode) (ServicePrice, bool, error)
	Upsert(ctx context.Context, p ServicePrice) (ServicePrice, error)
	List(ctx context.Context, tenantID string) ([]ServicePrice, error)
}

// Resolver picks the applicable price: sub-tenant, then parent tenant, then platform
// default. Each level is consulted only when the previous one has no active row.
// It never writes.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver { return &Resolver{repo: repo} }

func (r *Resolver) Resolve(ctx context.Context, tenantID, subTenantID string, code catalog.ServiceCode) (Resolved, error) {
	if !code.Valid() {
		return Resolved{}, catalog.ErrUnknownService
	}
	for _, k := range chain(tenantID, subTenantID) {
		p, ok, err := r.repo.Get(ctx, k.tenantID, code)
		if err != nil {
			return Resolved{}, utils.Unavailable(err)
		}
		if !ok || !p.Active {
			continue
		}
		return Resolved{
			ServiceCode: code,
			PriceMinor:  p.PriceMinor,
			Currency:    p.Currency,
			Level:       k.level,
			PriceID:     p.ID,
		}, nil
	}
	return Resolved{}, fmt.Errorf("%w: %s", ErrPriceNotConfigured, code)
}
