package tenant

import (
	"regexp"
	"time"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusDisabled  Status = "DISABLED"
	StatusSuspended Status = "SUSPENDED"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDisabled || s == StatusSuspended
}

// Tenant is a reseller account or, when ParentID is set, one of its sub-tenants.
// Only one level of nesting exists: a parent is always top-level.
type Tenant struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Slug     string `json:"slug" db:"slug"`
	Status   Status `json:"status" db:"status"`
	ParentID string `json:"parent_id,omitempty" db:"parent_id"`

	DisabledAt     *time.Time `json:"disabled_at,omitempty" db:"disabled_at"`
	DisabledBy     string     `json:"disabled_by,omitempty" db:"disabled_by"`
	DisabledReason string     `json:"disabled_reason,omitempty" db:"disabled_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (t Tenant) IsSubTenant() bool { return t.ParentID != "" }

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// EffectiveStatus is ACTIVE only when the tenant and its parent (if any) are both
// ACTIVE. Otherwise the tenant's own non-active status wins over the parent's.
func EffectiveStatus(t Tenant, parent *Tenant) Status {
	if t.Status != StatusActive {
		return t.Status
	}
	if parent != nil && parent.Status != StatusActive {
		return parent.Status
	}
	return StatusActive
}

// Context is what the edge resolves for a caller before admission.
// TenantID is always the top-level tenant; SubTenantID is set when acting for a
// sub-tenant. Status is the effective status of the acting tenant.
type Context struct {
	TenantID    string `json:"tenant_id"`
	SubTenantID string `json:"sub_tenant_id,omitempty"`
	Status      Status `json:"status"`
}

// BilledTenantID is the tenant whose wallet pays: the sub-tenant when present.
func (c Context) BilledTenantID() string {
	if c.SubTenantID != "" {
		return c.SubTenantID
	}
	return c.TenantID
}
