package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/catalog"
	"compliance-platform/pkg/utils"

	"github.com/google/uuid"
)

// AuditRecorder is the subset of audit.Recorder the price administration needs.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) (string, error)
}

// Tenants reports whether a tenant exists.
type Tenants interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// directReader is implemented by repositories whose Get may serve cached rows.
type directReader interface {
	GetDirect(ctx context.Context, tenantID string, code catalog.ServiceCode) (ServicePrice, bool, error)
}

// Service administers price rows. Every successful change is audited; if the audit
// write fails the call returns an error wrapping utils.ErrStorageUnavailable.
type Service struct {
	repo    Repository
	tenants Tenants
	audit   AuditRecorder
	clock   func() time.Time
}

// NewService wires price administration. tenants may be nil when only platform
// defaults are managed.
func NewService(repo Repository, tenants Tenants, rec AuditRecorder) *Service {
	return &Service{repo: repo, tenants: tenants, audit: rec, clock: time.Now}
}

// current reads the stored row, never a cached copy.
func (s *Service) current(ctx context.Context, tenantID string, code catalog.ServiceCode) (ServicePrice, bool, error) {
	if d, ok := s.repo.(directReader); ok {
		return d.GetDirect(ctx, tenantID, code)
	}
	return s.repo.Get(ctx, tenantID, code)
}

type SetPriceRequest struct {
	// TenantID "" sets the platform default.
	TenantID    string              `json:"tenant_id,omitempty"`
	ServiceCode catalog.ServiceCode `json:"service_code"`
	PriceMinor  int64               `json:"price_minor"`
	Currency    string              `json:"currency"`
	ActorID     string              `json:"-"`
}

// SetPrice creates or replaces the row for (scope, code) and marks it active.
func (s *Service) SetPrice(ctx context.Context, req SetPriceRequest) (ServicePrice, error) {
	if !req.ServiceCode.Valid() {
		return ServicePrice{}, catalog.ErrUnknownService
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.PriceMinor <= 0 || len(currency) != 3 {
		return ServicePrice{}, ErrInvalidPrice
	}

	if req.TenantID != "" && s.tenants != nil {
		ok, err := s.tenants.Exists(ctx, req.TenantID)
		if err != nil {
			return ServicePrice{}, utils.Unavailable(err)
		}
		if !ok {
			return ServicePrice{}, ErrUnknownTenant
		}
	}

	prev, hadPrev, err := s.current(ctx, req.TenantID, req.ServiceCode)
	if err != nil {
		return ServicePrice{}, utils.Unavailable(err)
	}

	p, err := s.repo.Upsert(ctx, ServicePrice{
		ID:          uuid.NewString(),
		TenantID:    req.TenantID,
		ServiceCode: req.ServiceCode,
		PriceMinor:  req.PriceMinor,
		Currency:    currency,
		Active:      true,
		UpdatedAt:   s.clock().UTC(),
		UpdatedBy:   req.ActorID,
	})
	if err != nil {
		return ServicePrice{}, utils.Unavailable(err)
	}

	e, err := audit.NewEntry(req.TenantID, audit.EventAdminPriceUpdated, audit.ResultAllowed,
		fmt.Sprintf("price for %s set to %d %s", p.ServiceCode, p.PriceMinor, p.Currency))
	if err != nil {
		return ServicePrice{}, err
	}
	e = e.WithTarget(audit.TargetServicePrice, p.ID).
		WithMeta("service_code", string(p.ServiceCode)).
		WithMeta("price_minor", p.PriceMinor).
		WithMeta("currency", p.Currency)
	if hadPrev {
		e = e.WithMeta("previous_price_minor", prev.PriceMinor).WithMeta("previous_active", prev.Active)
	}
	if _, err := s.audit.Record(ctx, e); err != nil {
		return ServicePrice{}, err
	}
	return p, nil
}

// DeactivatePrice keeps the row but takes it out of resolution, so the next level applies.
func (s *Service) DeactivatePrice(ctx context.Context, tenantID string, code catalog.ServiceCode, actorID string) (ServicePrice, error) {
	if !code.Valid() {
		return ServicePrice{}, catalog.ErrUnknownService
	}
	p, ok, err := s.current(ctx, tenantID, code)
	if err != nil {
		return ServicePrice{}, utils.Unavailable(err)
	}
	if !ok {
		return ServicePrice{}, ErrPriceNotFound
	}
	if !p.Active {
		return p, nil
	}

	p.Active = false
	p.UpdatedAt = s.clock().UTC()
	p.UpdatedBy = actorID
	if p, err = s.repo.Upsert(ctx, p); err != nil {
		return ServicePrice{}, utils.Unavailable(err)
	}

	e, err := audit.NewEntry(tenantID, audit.EventAdminPriceDeactivated, audit.ResultAllowed,
		fmt.Sprintf("price for %s deactivated", code))
	if err != nil {
		return ServicePrice{}, err
	}
	e = e.WithTarget(audit.TargetServicePrice, p.ID).WithMeta("service_code", string(code))
	if _, err := s.audit.Record(ctx, e); err != nil {
		return ServicePrice{}, err
	}
	return p, nil
}

func (s *Service) ListPrices(ctx context.Context, tenantID string) ([]ServicePrice, error) {
	out, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, utils.Unavailable(err)
	}
	return out, nil
}
