package httpapi

import (
	"compliance-platform/internal/audit"
	"compliance-platform/internal/rbac"
	"compliance-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequestContext attaches client ip, user agent and request id to the request
// context so audit entries written downstream carry them.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithRequest(c.Request.Context(), audit.RequestInfo{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: logger.RequestID(c),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AuditDenied records SECURITY_ACCESS_DENIED for requests rejected by rbac guards
// further down the chain.
func AuditDenied(rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		reason := c.GetString(rbac.DeniedKey)
		if reason == "" || rec == nil {
			return
		}
		ctx := c.Request.Context()
		e, err := audit.NewEntry(billedTenant(c), audit.EventSecurityAccessDenied, audit.ResultBlocked, reason)
		if err != nil {
			return
		}
		e = e.WithMeta("path", c.FullPath()).WithMeta("method", c.Request.Method)
		if t := c.Param("tenant_id"); t != "" {
			e = e.WithTarget(audit.TargetTenant, t)
		}
		if _, err := rec.Record(ctx, e); err != nil {
			logger.From(ctx).Error("audit access denial failed", "err", err)
		}
	}
}
