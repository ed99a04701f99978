package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// PlatformRole is the only role allowed to act without a tenant in its token.
const PlatformRole = "super_admin"

// Claims are the only supported JWT claims shape for this service.
// Multi-tenant invariant: TenantID must be present for all non-platform activity.
// SubTenantID narrows the caller to one sub-tenant of TenantID.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string    `json:"user_id"`
	TenantID    string    `json:"tenant_id"`
	SubTenantID string    `json:"sub_tenant_id,omitempty"`
	Role        string    `json:"role"`
	ActorType   string    `json:"actor_type,omitempty"`
	TokenType   TokenType `json:"token_type"`
}

func (c Claims) Identity() Identity {
	return Identity{
		UserID:      c.UserID,
		TenantID:    c.TenantID,
		SubTenantID: c.SubTenantID,
		Role:        c.Role,
		ActorType:   c.ActorType,
	}
}
