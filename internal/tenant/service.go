package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/catalog"
	"compliance-platform/internal/wallet"
	"compliance-platform/pkg/utils"

	"github.com/google/uuid"
)

// WalletOpener opens the 1:1 wallet of a new tenant.
type WalletOpener interface {
	Open(ctx context.Context, tenantID, currency string) (wallet.Wallet, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) (string, error)
}

// Service owns tenant lifecycle and service enablement. Every account-control
// and enablement change is audited; the acting user comes from audit.ActorFromContext.
type Service struct {
	repo    Repository
	wallets WalletOpener
	audit   AuditRecorder
	clock   func() time.Time

	defaultCurrency string
}

func NewService(repo Repository, wallets WalletOpener, rec AuditRecorder, defaultCurrency string) *Service {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Service{repo: repo, wallets: wallets, audit: rec, clock: time.Now, defaultCurrency: defaultCurrency}
}

func (s *Service) classify(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range []error{ErrNotFound, ErrSlugTaken, ErrInvalidTenant, ErrInvalidParent, ErrNotSubTenant, ErrInvalidTransition, catalog.ErrUnknownService} {
		if errors.Is(err, target) {
			return err
		}
	}
	return utils.Unavailable(err)
}

type CreateRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID string `json:"parent_id,omitempty"`
	// Currency of the new wallet; the configured default when empty.
	Currency string `json:"currency,omitempty"`
	// Services to enable; nil enables the whole catalog.
	Services []catalog.ServiceCode `json:"services,omitempty"`
}

// Create registers a tenant, opens its wallet and enables the requested services.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Tenant, error) {
	name := strings.TrimSpace(req.Name)
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if name == "" || !slugPattern.MatchString(slug) {
		return Tenant{}, ErrInvalidTenant
	}
	services := req.Services
	if services == nil {
		services = catalog.All()
	}
	for _, code := range services {
		if !code.Valid() {
			return Tenant{}, catalog.ErrUnknownService
		}
	}
	if req.ParentID != "" {
		parent, err := s.repo.Get(ctx, req.ParentID)
		if errors.Is(err, ErrNotFound) {
			return Tenant{}, ErrInvalidParent
		}
		if err != nil {
			return Tenant{}, s.classify(err)
		}
		if parent.IsSubTenant() {
			return Tenant{}, ErrInvalidParent
		}
	}

	now := s.clock().UTC()
	t := Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      slug,
		Status:    StatusActive,
		ParentID:  req.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Tenant{}, s.classify(err)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	w, err := s.wallets.Open(ctx, t.ID, currency)
	if err != nil {
		return Tenant{}, fmt.Errorf("tenant: open wallet: %w", err)
	}

	actor := audit.ActorFromContext(ctx)
	for _, code := range services {
		if err := s.repo.SetService(ctx, t.ID, code, true, actor.ID, now); err != nil {
			return Tenant{}, s.classify(err)
		}
	}

	e, err := audit.NewEntry(t.ID, audit.EventAccountCreated, audit.ResultAllowed, fmt.Sprintf("tenant %s created", t.Slug))
	if err != nil {
		return Tenant{}, err
	}
	e = e.WithTarget(audit.TargetTenant, t.ID).
		WithMeta("wallet_id", w.ID).
		WithMeta("currency", w.Currency).
		WithMeta("services", len(services))
	if t.ParentID != "" {
		e = e.WithMeta("parent_id", t.ParentID)
	}
	if _, err := s.audit.Record(ctx, e); err != nil {
		return Tenant{}, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (Tenant, error) {
	if id == "" {
		return Tenant{}, ErrNotFound
	}
	t, err := s.repo.Get(ctx, id)
	return t, s.classify(err)
}

// Exists reports whether id names a tenant.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.Get(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, err
}

func (s *Service) SubTenants(ctx context.Context, parentID string) ([]Tenant, error) {
	if _, err := s.Get(ctx, parentID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListChildren(ctx, parentID)
	return out, s.classify(err)
}

// Disable blocks all admissions for the tenant and, through EffectiveStatus, its sub-tenants.
func (s *Service) Disable(ctx context.Context, id, reason string) (Tenant, error) {
	return s.setStatus(ctx, id, StatusDisabled, reason)
}

func (s *Service) Suspend(ctx context.Context, id, reason string) (Tenant, error) {
	return s.setStatus(ctx, id, StatusSuspended, reason)
}

func (s *Service) Enable(ctx context.Context, id string) (Tenant, error) {
	return s.setStatus(ctx, id, StatusActive, "")
}

var statusEvents = map[Status]audit.EventType{
	StatusActive:    audit.EventAccountEnabled,
	StatusDisabled:  audit.EventAccountDisabled,
	StatusSuspended: audit.EventAccountSuspended,
}

func (s *Service) setStatus(ctx context.Context, id string, to Status, reason string) (Tenant, error) {
	reason = strings.TrimSpace(reason)
	if to != StatusActive && reason == "" {
		return Tenant{}, fmt.Errorf("%w: reason required", ErrInvalidTransition)
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}
	if t.Status == to {
		return Tenant{}, fmt.Errorf("%w: already %s", ErrInvalidTransition, to)
	}

	from := t.Status
	actor := audit.ActorFromContext(ctx)
	now := s.clock().UTC()
	t.Status = to
	t.UpdatedAt = now
	if to == StatusActive {
		t.DisabledAt, t.DisabledBy, t.DisabledReason = nil, "", ""
	} else {
		t.DisabledAt, t.DisabledBy, t.DisabledReason = &now, actor.ID, reason
	}
	if err := s.repo.UpdateStatus(ctx, t); err != nil {
		return Tenant{}, s.classify(err)
	}

	e, err := audit.NewEntry(t.ID, statusEvents[to], audit.ResultAllowed, fmt.Sprintf("tenant %s %s -> %s", t.Slug, from, to))
	if err != nil {
		return Tenant{}, err
	}
	e = e.WithTarget(audit.TargetTenant, t.ID).WithMeta("from", string(from)).WithMeta("to", string(to))
	if reason != "" {
		e = e.WithMeta("reason", reason)
	}
	if _, err := s.audit.Record(ctx, e); err != nil {
		return Tenant{}, err
	}
	return t, nil
}

// SetServiceEnabled toggles one catalog service for a tenant.
func (s *Service) SetServiceEnabled(ctx context.Context, id string, code catalog.ServiceCode, enabled bool) error {
	if !code.Valid() {
		return catalog.ErrUnknownService
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	actor := audit.ActorFromContext(ctx)
	if err := s.repo.SetService(ctx, id, code, enabled, actor.ID, s.clock().UTC()); err != nil {
		return s.classify(err)
	}

	event := audit.EventAdminServiceDisabled
	if enabled {
		event = audit.EventAdminServiceEnabled
	}
	e, err := audit.NewEntry(id, event, audit.ResultAllowed, fmt.Sprintf("service %s enabled=%t", code, enabled))
	if err != nil {
		return err
	}
	_, err = s.audit.Record(ctx, e.WithTarget(audit.TargetService, string(code)).WithMeta("service_code", string(code)))
	return err
}

func (s *Service) Services(ctx context.Context, id string) (map[catalog.ServiceCode]bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.repo.Services(ctx, id)
	return out, s.classify(err)
}

// ServiceEnabled requires the flag on the tenant and, for a sub-tenant, on the parent too.
func (s *Service) ServiceEnabled(ctx context.Context, tc Context, code catalog.ServiceCode) (bool, error) {
	ids := []string{tc.TenantID}
	if tc.SubTenantID != "" {
		ids = append(ids, tc.SubTenantID)
	}
	for _, id := range ids {
		ok, err := s.repo.ServiceEnabled(ctx, id, code)
		if err != nil {
			return false, s.classify(err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// ResolveContext builds the admission context for a caller. A sub-tenant id passed
// as tenantID is normalized to (parent, sub).
func (s *Service) ResolveContext(ctx context.Context, tenantID, subTenantID string) (Context, error) {
	t, err := s.Get(ctx, tenantID)
	if err != nil {
		return Context{}, err
	}
	if t.IsSubTenant() {
		if subTenantID != "" && subTenantID != t.ID {
			return Context{}, ErrNotSubTenant
		}
		parent, err := s.Get(ctx, t.ParentID)
		if err != nil {
			return Context{}, err
		}
		return Context{TenantID: parent.ID, SubTenantID: t.ID, Status: EffectiveStatus(t, &parent)}, nil
	}
	if subTenantID == "" {
		return Context{TenantID: t.ID, Status: EffectiveStatus(t, nil)}, nil
	}

	sub, err := s.Get(ctx, subTenantID)
	if err != nil {
		return Context{}, err
	}
	if sub.ParentID != t.ID {
		return Context{}, ErrNotSubTenant
	}
	return Context{TenantID: t.ID, SubTenantID: sub.ID, Status: EffectiveStatus(sub, &t)}, nil
}
