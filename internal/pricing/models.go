package pricing

import (
	"time"

	"compliance-platform/internal/catalog"
)

// ServicePrice is the unit price of a service code at one scope.
// TenantID "" is the platform default (NULL in storage).
// Amounts are expressed in minor units (e.g., cents) using int64.
type ServicePrice struct {
	ID          string              `json:"id" db:"id"`
	TenantID    string              `json:"tenant_id,omitempty" db:"tenant_id"`
	ServiceCode catalog.ServiceCode `json:"service_code" db:"service_code"`

	PriceMinor int64  `json:"price_minor" db:"price_minor"`
	Currency   string `json:"currency" db:"currency"`
	Active     bool   `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty" db:"updated_by"`
}

// Level names the scope a resolved price came from.
type Level string

const (
	LevelSubTenant Level = "SUB_TENANT"
	LevelTenant    Level = "TENANT"
	LevelPlatform  Level = "PLATFORM"
)

// scopeKey is one step of the resolution chain.
type scopeKey struct {
	level    Level
	tenantID string
}

// chain lists scopes from most to least specific.
func chain(tenantID, subTenantID string) []scopeKey {
	keys := make([]scopeKey, 0, 3)
	if subTenantID != "" {
		keys = append(keys, scopeKey{LevelSubTenant, subTenantID})
	}
	if tenantID != "" {
		keys = append(keys, scopeKey{LevelTenant, tenantID})
	}
	return append(keys, scopeKey{LevelPlatform, ""})
}

// Resolved is the outcome of a successful resolution.
type Resolved struct {
	ServiceCode catalog.ServiceCode `json:"service_code"`
	PriceMinor  int64               `json:"price_minor"`
	Currency    string              `json:"currency"`
	Level       Level               `json:"level"`
	PriceID     string              `json:"price_id"`
}
