package rbac

import "compliance-platform/internal/auth"

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"     // tenant administrator
	RoleDeveloper  = "developer" // runs billable services through the API
	RoleFinance    = "finance"   // balances and transactions
	RoleAuditor    = "auditor"   // read-only audit trail
	RoleSuperAdmin = auth.PlatformRole
	RoleSupport    = "platform_support" // hidden role
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleSupport }
