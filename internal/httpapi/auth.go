package httpapi

import (
	"context"
	"net/http"
	"time"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/auth"
	"compliance-platform/internal/rbac"
	"compliance-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	UserID      string `json:"user_id"`
	TenantID    string `json:"tenant_id"`
	SubTenantID string `json:"sub_tenant_id,omitempty"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a development-only endpoint; it is not registered in production.
// Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.UserID == "" || req.Role == "" || (req.TenantID == "" && !rbac.IsSuperAdmin(req.Role)) {
		badRequest(c, "user_id, tenant_id, role required")
		return
	}
	ctx := audit.WithActor(c.Request.Context(), audit.Actor{ID: req.UserID, Role: req.Role, Type: audit.ActorUser})

	if req.TenantID != "" {
		tc, err := h.Tenants.ResolveContext(ctx, req.TenantID, req.SubTenantID)
		if err != nil {
			h.recordAuth(ctx, req.TenantID, audit.EventAuthLogin, audit.ResultBlocked, "unknown tenant")
			writeError(c, err)
			return
		}
		req.TenantID, req.SubTenantID = tc.TenantID, tc.SubTenantID
	}

	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{
		UserID:      req.UserID,
		TenantID:    req.TenantID,
		SubTenantID: req.SubTenantID,
		Role:        req.Role,
	})
	if err != nil {
		h.recordAuth(ctx, req.TenantID, audit.EventAuthLogin, audit.ResultFailed, "token issuance failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	h.recordAuth(ctx, req.TenantID, audit.EventAuthLogin, audit.ResultAllowed, "token pair issued")
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// Logout only records the event; tokens are stateless and expire on their own.
func (h Handlers) Logout(c *gin.Context) {
	id, _ := auth.IdentityFrom(c.Request.Context())
	h.recordAuth(c.Request.Context(), id.TenantID, audit.EventAuthLogout, audit.ResultAllowed, "logout")
	c.Status(http.StatusNoContent)
}

// Me returns the caller identity.
func (h Handlers) Me(c *gin.Context) {
	id, _ := auth.IdentityFrom(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"user_id":       id.UserID,
		"tenant_id":     id.TenantID,
		"sub_tenant_id": id.SubTenantID,
		"role":          id.Role,
	})
}

// recordAuth is best-effort; platform logins without a tenant are not recorded.
func (h Handlers) recordAuth(ctx context.Context, tenantID string, t audit.EventType, r audit.Result, msg string) {
	if h.Audit == nil || tenantID == "" {
		return
	}
	e, err := audit.NewEntry(tenantID, t, r, msg)
	if err != nil {
		return
	}
	if _, err := h.Audit.Record(ctx, e); err != nil {
		logger.From(ctx).Error("audit auth event failed", "event_type", t, "err", err)
	}
}
