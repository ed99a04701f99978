package rbac

import (
	"net/http"

	"compliance-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireTenant enforces the multi-tenant invariant: tenant_id must exist in context.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tid, err := auth.TenantID(c.Request.Context())
		if err != nil || tid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
			return
		}
		c.Next()
	}
}

// SameTenantOrSuperAdmin allows a path tenant (":param") only when it is the caller's
// tenant or sub-tenant. super_admin may address any tenant.
func SameTenantOrSuperAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := auth.IdentityFrom(c.Request.Context())
		if IsSuperAdmin(id.Role) {
			c.Next()
			return
		}
		target := c.Param(param)
		if target == "" || (target != id.TenantID && target != id.SubTenantID) {
			forbid(c, "cross-tenant access")
			return
		}
		if id.SubTenantID != "" && target != id.SubTenantID {
			forbid(c, "sub-tenant addressing parent")
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// Rules:
// - super_admin bypasses all checks
// - platform_support is a hidden role, and will be denied unless explicitly allowed
// - tenant isolation is enforced via RequireTenant (use it in the chain)
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}

		// super_admin bypasses all
		if IsSuperAdmin(role) {
			c.Next()
			return
		}

		// hidden roles are opt-in only
		if IsHiddenRole(role) {
			if _, ok := allowedSet[role]; !ok {
				forbid(c, "hidden role not allowed")
				return
			}
		}

		if _, ok := allowedSet[role]; !ok {
			forbid(c, "role not allowed")
			return
		}
		c.Next()
	}
}

// DeniedKey holds the reason of the last RBAC denial on the gin context.
const DeniedKey = "rbac_denied"

func forbid(c *gin.Context, reason string) {
	c.Set(DeniedKey, reason)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}
